package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/locator"
)

func newTripleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triple",
		Short: "Print the host target triple used in broker binary names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), locator.HostPlatform().Triple())
			return err
		},
	}
}
