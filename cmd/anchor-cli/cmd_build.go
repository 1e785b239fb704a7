package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
)

type buildResult struct {
	ID         commit.Digest `yaml:"id"`
	Commitment commit.Digest `yaml:"commitment"`
	Method     dbc.Method    `yaml:"method"`
	Script     string        `yaml:"script"`
	Contracts  int           `yaml:"contracts"`
	Depth      uint8         `yaml:"depth"`
	Cofactor   uint16        `yaml:"cofactor"`
}

// parseContractArg reads "<contract>:<bundle>[,<bundle>...]".
func parseContractArg(s string) (commit.ContractId, []commit.BundleRef, error) {
	cidText, refsText, ok := strings.Cut(s, ":")
	if !ok {
		return commit.ContractId{}, nil, fmt.Errorf("contract %q: want <contract>:<bundle>[,<bundle>...]", s)
	}
	cid, err := commit.ParseContractId(strings.TrimSpace(cidText))
	if err != nil {
		return cid, nil, err
	}
	refs, err := parseBundles(strings.Split(refsText, ","))
	return cid, refs, err
}

func parseBundles(raw []string) ([]commit.BundleRef, error) {
	refs := make([]commit.BundleRef, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		ref, err := commit.ParseBundleRef(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

type partnerFlags struct {
	node   string
	leaf   string
	branch string
}

func (f partnerFlags) set() bool {
	return f.node != "" || f.leaf != "" || f.branch != ""
}

// partner turns at most one of --partner-node, --partner-leaf and
// --partner-branch into a tapret partner.
func (f partnerFlags) partner() (*dbc.TapretPartner, error) {
	n := 0
	for _, v := range []string{f.node, f.leaf, f.branch} {
		if v != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return nil, nil
	case n > 1:
		return nil, errors.New("give at most one of --partner-node, --partner-leaf, --partner-branch")
	case f.node != "":
		d, err := commit.ParseDigest(f.node)
		if err != nil {
			return nil, fmt.Errorf("partner node: %w", err)
		}
		return dbc.LeftNodePartner(d), nil
	case f.leaf != "":
		script, err := hex.DecodeString(f.leaf)
		if err != nil {
			return nil, fmt.Errorf("partner leaf: %w", err)
		}
		return dbc.RightLeafPartner(script), nil
	}
	left, right, ok := strings.Cut(f.branch, ":")
	if !ok {
		return nil, errors.New("partner branch: want <left>:<right>")
	}
	l, err := commit.ParseDigest(left)
	if err != nil {
		return nil, fmt.Errorf("partner branch: %w", err)
	}
	r, err := commit.ParseDigest(right)
	if err != nil {
		return nil, fmt.Errorf("partner branch: %w", err)
	}
	return dbc.RightBranchPartner(l, r), nil
}

func proofFromFlags(method, internalKey string, nonce uint8, pf partnerFlags) (dbc.Proof, error) {
	m, err := dbc.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	if m == dbc.MethodOpret {
		if internalKey != "" || pf.set() {
			return nil, errors.New("--internal-key and --partner-* only apply to tapret")
		}
		return dbc.OpretProof{}, nil
	}
	key, err := hex.DecodeString(internalKey)
	if err != nil || len(key) != 32 {
		return nil, errors.New("tapret needs --internal-key as 32-byte x-only hex")
	}
	p := dbc.TapretProof{Nonce: nonce}
	copy(p.InternalKey[:], key)
	if p.Partner, err = pf.partner(); err != nil {
		return nil, err
	}
	return p, nil
}

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var (
		contracts   []string
		method      string
		internalKey string
		nonce       uint8
		partner     partnerFlags
		entropy     uint64
		minDepth    uint8
		out         string
	)
	cmd := &cobra.Command{
		Use:   "build --contract <id>:<bundle>[,...] -o <file.anchor>",
		Short: "Commit bundles of several contracts into one anchor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(contracts) == 0 {
				return errors.New("at least one --contract is required")
			}
			proof, err := proofFromFlags(method, internalKey, nonce, partner)
			if err != nil {
				return err
			}

			bopts := []anchor.BuilderOption{
				anchor.WithLogger(opts.log),
				anchor.WithMaxContracts(opts.cfg.MaxContracts),
			}
			if cmd.Flags().Changed("entropy") {
				bopts = append(bopts, anchor.WithEntropy(entropy))
			}
			if cmd.Flags().Changed("min-depth") {
				bopts = append(bopts, anchor.WithMinDepth(minDepth))
			}
			b := anchor.NewBuilder(bopts...)
			for _, arg := range contracts {
				cid, refs, err := parseContractArg(arg)
				if err != nil {
					return err
				}
				if err := b.AddContract(cid, refs...); err != nil {
					return err
				}
			}

			built, err := b.Build(cmd.Context(), proof)
			if err != nil {
				return err
			}
			id, err := built.Anchor.ID()
			if err != nil {
				return err
			}
			if err := writeAnchor(out, built.Anchor); err != nil {
				return err
			}
			opts.log.Info("anchor written", "path", out, "id", id.String())
			return writeYAML(cmd.OutOrStdout(), buildResult{
				ID:         id,
				Commitment: built.Anchor.MpcProof.Commitment(),
				Method:     proof.Method(),
				Script:     hex.EncodeToString(built.Script),
				Contracts:  built.Anchor.Contracts.Len(),
				Depth:      built.Tree.Depth(),
				Cofactor:   built.Tree.Cofactor(),
			})
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&contracts, "contract", "c", nil, "<contract>:<bundle>[,<bundle>...] (repeatable)")
	f.StringVarP(&method, "method", "m", "opret", "dbc method: opret|tapret")
	f.StringVar(&internalKey, "internal-key", "", "tapret internal key, 32-byte x-only hex")
	f.Uint8Var(&nonce, "nonce", 0, "tapret nonce")
	f.StringVar(&partner.node, "partner-node", "", "tapret partner sorting left of the commitment leaf, node hash hex")
	f.StringVar(&partner.leaf, "partner-leaf", "", "tapret partner leaf script sorting right of the commitment leaf, hex")
	f.StringVar(&partner.branch, "partner-branch", "", "tapret partner branch sorting right of the commitment leaf, <left>:<right> node hashes hex")
	f.Uint64Var(&entropy, "entropy", 0, "fixed MPC entropy (reproducible output)")
	f.Uint8Var(&minDepth, "min-depth", 0, "minimum MPC tree depth")
	f.StringVarP(&out, "output", "o", "", "destination .anchor file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
