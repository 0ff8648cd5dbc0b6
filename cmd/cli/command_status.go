package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the broker state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := dial(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			view, err := checkBroker(ctx, healthpb.NewHealthClient(conn))
			if err != nil {
				if grpcCode(err) == codes.PermissionDenied {
					return fmt.Errorf("forbidden: this client is not in the shell's allowed_clients")
				}
				return err
			}

			if asJSON {
				out, err := statusJSON(view)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderStatusTable(view))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func checkBroker(ctx context.Context, client healthpb.HealthClient) (brokerView, error) {
	var header metadata.MD
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: lib.HealthServiceName}, grpc.Header(&header))
	if err != nil {
		return brokerView{}, err
	}
	return newBrokerView(resp.GetStatus(), header), nil
}
