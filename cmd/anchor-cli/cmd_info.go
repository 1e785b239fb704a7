package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"seals.dev/anchor/anchor"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print a short summary of an .anchor or .tx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.ErrOrStderr()
			kind, err := fileKind(args[0])
			if err != nil {
				return err
			}
			switch kind {
			case extAnchor:
				a, err := readAnchor(args[0], opts.cfg.MaxContracts)
				if err != nil {
					return err
				}
				id, err := a.ID()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(w, "File type: Anchor")
				_, _ = fmt.Fprintf(w, "Anchor Id: %s\n", id)
				_, _ = fmt.Fprintf(w, "Method: %s\n", a.DbcProof.Method())
				_, _ = fmt.Fprintf(w, "Commitment: %s\n", a.MpcProof.Commitment())
				_, _ = fmt.Fprintf(w, "MPC: depth %d, cofactor %d\n", a.MpcProof.Depth, a.MpcProof.Cofactor)
				_, _ = fmt.Fprintf(w, "Contracts: %d\n", a.Contracts.Len())
			case extTx:
				tx, err := readTx(args[0])
				if err != nil {
					return err
				}
				witness := "absent"
				if tx.HasWitness() {
					witness = "present"
				}
				_, _ = fmt.Fprintln(w, "File type: Transaction")
				_, _ = fmt.Fprintf(w, "Txid: %s\n", tx.Txid())
				_, _ = fmt.Fprintf(w, "Inputs: %d, outputs: %d\n", len(tx.Inputs), len(tx.Outputs))
				_, _ = fmt.Fprintf(w, "Witness: %s\n", witness)
			}
			return nil
		},
	}
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Dump an .anchor or .tx file as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := fileKind(args[0])
			if err != nil {
				return err
			}
			if kind == extTx {
				tx, err := readTx(args[0])
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), txViewOf(tx))
			}
			a, err := readAnchor(args[0], opts.cfg.MaxContracts)
			if err != nil {
				return err
			}
			v, err := anchorViewOf(a)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), v)
		},
	}
}

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "dump <src.anchor> [dst]",
		Short: "Write an anchor into a directory of YAML files, one per contract",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if filepath.Ext(src) != extAnchor {
				return fmt.Errorf("can't detect the type for '%s': the extension is not recognized", src)
			}
			dst := filepath.Join(filepath.Dir(src), "dump")
			if len(args) == 2 {
				dst = args[1]
			}
			a, err := readAnchor(src, opts.cfg.MaxContracts)
			if err != nil {
				return err
			}
			if err := dumpAnchor(a, dst, force); err != nil {
				return err
			}
			opts.log.Info("anchor dumped", "dst", dst, "contracts", a.Contracts.Len())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing destination")
	return cmd
}

const (
	dumpIndex     = "anchor.yaml"
	dumpContracts = "contracts"
)

// clearDump removes what an earlier dump wrote into dst. It checks the
// whole tree first and refuses, touching nothing, when dst holds anything
// a dump does not write.
func clearDump(dst string) error {
	foreign := func(name string) error {
		return fmt.Errorf("destination '%s' holds '%s', which is not part of a dump; refusing to overwrite", dst, name)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		return err
	}
	var files []string
	hasContracts := false
	for _, e := range entries {
		switch {
		case e.Name() == dumpIndex && e.Type().IsRegular():
			files = append(files, filepath.Join(dst, dumpIndex))
		case e.Name() == dumpContracts && e.IsDir():
			hasContracts = true
		default:
			return foreign(e.Name())
		}
	}
	if hasContracts {
		dir := filepath.Join(dst, dumpContracts)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".yaml" {
				return foreign(filepath.Join(dumpContracts, e.Name()))
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	if hasContracts {
		return os.Remove(filepath.Join(dst, dumpContracts))
	}
	return nil
}

func dumpAnchor(a anchor.Anchor, dst string, force bool) error {
	info, err := os.Stat(dst)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("destination '%s' is not a directory", dst)
	case !force:
		return fmt.Errorf("destination '%s' already exists; use --force to overwrite", dst)
	default:
		if err := clearDump(dst); err != nil {
			return err
		}
	}
	contractsDir := filepath.Join(dst, dumpContracts)
	if err := os.MkdirAll(contractsDir, 0o750); err != nil {
		return err
	}

	v, err := anchorViewOf(a)
	if err != nil {
		return err
	}
	contracts := v.Contracts
	v.Contracts = nil
	if err := writeYAMLFile(filepath.Join(dst, dumpIndex), v); err != nil {
		return err
	}
	for _, c := range contracts {
		if err := writeYAMLFile(filepath.Join(contractsDir, c.Contract.String()+".yaml"), c); err != nil {
			return err
		}
	}
	return nil
}

func writeYAMLFile(path string, v any) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- path under operator-chosen dump dir.
	if err != nil {
		return err
	}
	if err := writeYAML(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
