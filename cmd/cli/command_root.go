package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/config"
)

type rootOptions struct {
	configPath string
	address    string
	timeout    time.Duration
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "brokerctl",
		Short:         "Inspect the broker supervised by the desktop shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(config.EnvConfigPath), "Path to the shell TOML config")
	root.PersistentFlags().StringVar(&opts.address, "addr", "", "Shell address (overrides config and "+config.EnvAddress+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newPathCmd(opts))
	root.AddCommand(newTripleCmd())
	root.AddCommand(newHistoryCmd(opts))

	return root
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if o.address != "" {
		cfg.Listen = o.address
	}
	return cfg, nil
}
