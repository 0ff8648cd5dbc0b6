package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/locator"
)

func newPathCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the shell looks for the broker binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			loc := locator.New(cfg.Component, cfg.Mode, locator.WithDevDir(cfg.BinaryDir))
			path, err := loc.ResolveBinaryPath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
