package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seals.dev/anchor/commit"
	"seals.dev/anchor/resolver"
	"seals.dev/anchor/store"
)

func (o *rootOptions) openStore() (*store.DB, error) {
	return store.Open(o.cfg.DataDir, store.WithLogger(o.log))
}

func newStoreCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Archive verified anchors",
	}
	cmd.AddCommand(newStorePutCmd(opts), newStoreGetCmd(opts), newStoreListCmd(opts))
	return cmd
}

func newStorePutCmd(opts *rootOptions) *cobra.Command {
	var src txSource
	cmd := &cobra.Command{
		Use:   "put <file.anchor> (--tx <file.tx> | --txid <txid>)",
		Short: "Verify an anchor against its transaction and archive both",
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
			if err := v.VerifyTransaction(a, tx); err != nil {
				return reportFailure(cmd.OutOrStdout(), err)
			}
			if src.path != "" {
				if _, err := resolver.NewDirResolver(opts.cfg.TxDir).Put(tx); err != nil {
					return err
				}
			}

			db, err := opts.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			id, err := db.PutAnchor(a, tx.Txid())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func newStoreGetCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <anchor-id>",
		Short: "Print an archived anchor as YAML, or write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := commit.ParseDigest(args[0])
			if err != nil {
				return err
			}
			db, err := opts.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			rec, err := db.GetAnchor(id)
			if err != nil {
				return err
			}
			if out != "" {
				return writeAnchor(out, rec.Anchor)
			}
			v, err := anchorViewOf(rec.Anchor)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), recordView{Txid: rec.Txid, Anchor: v})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the anchor to this .anchor file instead")
	return cmd
}

func newStoreListCmd(opts *rootOptions) *cobra.Command {
	var contract string
	cmd := &cobra.Command{
		Use:   "list [--contract <id>]",
		Short: "List archived anchors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := opts.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var recs []store.Record
			if contract != "" {
				cid, err := commit.ParseContractId(contract)
				if err != nil {
					return err
				}
				recs, err = db.ContractAnchors(cid)
				if err != nil {
					return err
				}
			} else if recs, err = db.List(); err != nil {
				return err
			}
			for _, r := range recs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", r.ID, r.Txid, r.Anchor.Contracts.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&contract, "contract", "c", "", "only anchors committing to this contract")
	return cmd
}
