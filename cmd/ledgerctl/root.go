package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ledger/config"
	"xdao.co/ledger/internal/logging"
	"xdao.co/ledger/ledger"
)

// rootOptions holds the global flags. Flag values override the config file
// and the environment when set.
type rootOptions struct {
	ConfigPath  string
	Network     string
	OperatorID  string
	OperatorKey string
	KeyFile     string
	MaxFee      string
	LogLevel    string
	Format      string

	// sessionOpts are appended to every OpenSession call.
	sessionOpts []ledger.Option
}

var validFormats = []string{"text", "json"}

func newRootCommand(sessionOpts ...ledger.Option) *cobra.Command {
	opts := &rootOptions{sessionOpts: sessionOpts}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Store and read text files on a ledger network",
		Long: `ledgerctl stores text as ledger files and reads them back.

Credentials and network come from --config, then LEDGER_* environment
variables, then flags. The operator balance is printed after every action.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return usageError(fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats))
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	f.StringVar(&opts.Network, "network", "", "network name (mainnet|testnet|previewnet|local or a configured one)")
	f.StringVar(&opts.OperatorID, "operator-id", "", "operator account id (shard.realm.num)")
	f.StringVar(&opts.OperatorKey, "operator-key", "", "operator private key")
	f.StringVar(&opts.KeyFile, "operator-key-file", "", "file holding the operator private key")
	f.StringVar(&opts.MaxFee, "max-fee", "", "fee limit in hbar")
	f.StringVar(&opts.LogLevel, "log-level", "", "log level (overrides config)")
	f.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newCreateCommand(opts))
	cmd.AddCommand(newReadCommand(opts))
	cmd.AddCommand(newBalanceCommand(opts))
	cmd.AddCommand(newNetworksCommand(opts))

	return cmd
}

// loadConfig layers flags over the file and environment.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, err
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Network, o.Network)
	set(&cfg.Operator.AccountID, o.OperatorID)
	set(&cfg.MaxFee, o.MaxFee)
	set(&cfg.Log.Level, o.LogLevel)
	if o.OperatorKey != "" {
		cfg.Operator.PrivateKey, cfg.Operator.PrivateKeyFile = o.OperatorKey, ""
	}
	if o.KeyFile != "" {
		cfg.Operator.PrivateKeyFile, cfg.Operator.PrivateKey = o.KeyFile, ""
	}
	return cfg, nil
}

// open loads the config and opens a session. The caller must close it.
func (o *rootOptions) open(cmd *cobra.Command) (*ledger.Session, *zap.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	sessionOpts := append([]ledger.Option{ledger.WithLogger(log)}, o.sessionOpts...)
	s, err := ledger.OpenSession(cfg, sessionOpts...)
	if err != nil {
		return nil, nil, err
	}
	return s, log, nil
}
