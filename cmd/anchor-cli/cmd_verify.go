package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"seals.dev/anchor/anchor"
	"seals.dev/anchor/bp"
	"seals.dev/anchor/commit"
	"seals.dev/anchor/dbc"
	"seals.dev/anchor/resolver"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold)
	failLabel = color.New(color.FgRed, color.Bold)
)

type claimView struct {
	Contract   commit.ContractId  `yaml:"contract"`
	Bundles    []commit.BundleRef `yaml:"bundles"`
	BundleRoot commit.Digest      `yaml:"bundle_root"`
	MpcRoot    commit.Digest      `yaml:"mpc_root"`
	Commitment commit.Digest      `yaml:"commitment"`
	Method     dbc.Method         `yaml:"method"`
	Txid       bp.Txid            `yaml:"txid"`
}

type txSource struct {
	path    string
	txid    string
	timeout time.Duration
}

func (s *txSource) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&s.path, "tx", "", "witness transaction file (.tx, hex)")
	f.StringVar(&s.txid, "txid", "", "resolve the witness transaction from --txdir")
	f.DurationVar(&s.timeout, "timeout", 5*time.Second, "transaction resolution timeout")
	cmd.MarkFlagsMutuallyExclusive("tx", "txid")
}

func (o *rootOptions) resolver() resolver.TxResolver {
	return resolver.NewCachedResolver(resolver.NewDirResolver(o.cfg.TxDir), o.cfg.CacheTTL)
}

func (o *rootOptions) loadTx(ctx context.Context, src txSource) (*bp.Tx, error) {
	switch {
	case src.path != "":
		return readTx(src.path)
	case src.txid != "":
		txid, err := bp.ParseTxid(src.txid)
		if err != nil {
			return nil, err
		}
		return resolver.WithTimeout(ctx, o.resolver(), txid, src.timeout)
	default:
		return nil, errors.New("one of --tx or --txid is required")
	}
}

func (o *rootOptions) verifier() (*anchor.Verifier, error) {
	methods, err := o.cfg.DbcMethods()
	if err != nil {
		return nil, err
	}
	v := anchor.NewVerifier(methods...)
	v.MaxContracts = o.cfg.MaxContracts
	return v, nil
}

func reportFailure(w io.Writer, err error) error {
	code := commit.CodeOf(err)
	if code == "" {
		code = "ERROR"
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", failLabel.Sprint("FAIL"), code)
	return failure("verification failed", err)
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var (
		contract string
		bundles  []string
		src      txSource
	)
	cmd := &cobra.Command{
		Use:   "verify <file.anchor> (--tx <file.tx> | --txid <txid>) [--contract <id> --bundle <ref>...]",
		Short: "Check that an anchor is committed by a transaction, optionally for one contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readAnchor(args[0], opts.cfg.MaxContracts)
			if err != nil {
				return err
			}
			tx, err := opts.loadTx(cmd.Context(), src)
			if err != nil {
				return err
			}
			v, err := opts.verifier()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if contract == "" {
				if len(bundles) != 0 {
					return errors.New("--bundle needs --contract")
				}
				if err := v.VerifyTransaction(a, tx); err != nil {
					return reportFailure(w, err)
				}
				_, _ = fmt.Fprintf(w, "%s anchor committed by %s\n", passLabel.Sprint("OK"), tx.Txid())
				return nil
			}

			cid, err := commit.ParseContractId(contract)
			if err != nil {
				return err
			}
			refs, err := parseBundles(bundles)
			if err != nil {
				return err
			}
			claim, err := v.Verify(a, cid, refs, tx)
			if err != nil {
				return reportFailure(w, err)
			}
			_, _ = fmt.Fprintf(w, "%s %d bundle(s) of %s committed by %s\n", passLabel.Sprint("OK"), len(claim.Bundles), cid, claim.Txid)
			return writeYAML(w, claimView{
				Contract:   claim.ContractId,
				Bundles:    claim.Bundles,
				BundleRoot: claim.BundleRoot,
				MpcRoot:    claim.MpcRoot,
				Commitment: claim.Commitment,
				Method:     claim.Method,
				Txid:       claim.Txid,
			})
		},
	}
	cmd.Flags().StringVarP(&contract, "contract", "c", "", "contract id (base58)")
	cmd.Flags().StringArrayVarP(&bundles, "bundle", "b", nil, "bundle ref, hex (repeatable)")
	src.register(cmd)
	return cmd
}
