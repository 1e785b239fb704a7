package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"seals.dev/anchor/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
	dataDir    string
	txDir      string
	noColor    bool

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "anchor-cli",
		Short:         "Multi-contract commitment anchor toolbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&opts.dataDir, "datadir", "", "data directory (anchor archive)")
	flags.StringVar(&opts.txDir, "txdir", "", "directory of <txid>.tx files")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newInfoCmd(opts),
		newInspectCmd(opts),
		newDumpCmd(opts),
		newBuildCmd(opts),
		newVerifyCmd(opts),
		newStoreCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.txDir != "" {
		cfg.TxDir = o.txDir
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if o.noColor {
		color.NoColor = true
	}
	o.cfg = cfg
	o.log = cfg.Logger(cmd.ErrOrStderr())
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}
