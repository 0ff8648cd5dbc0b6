package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow broker state changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			conn, err := dial(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			client := healthpb.NewHealthClient(conn)
			stream, err := client.Watch(ctx, &healthpb.HealthCheckRequest{Service: lib.HealthServiceName})
			if err != nil {
				return err
			}

			for {
				resp, err := stream.Recv()
				if errors.Is(err, io.EOF) || grpcCode(err) == codes.Canceled {
					return nil
				}
				if err != nil {
					return err
				}

				// The stream only carries the verdict, ask for the exact state.
				view, err := checkBroker(ctx, client)
				if err != nil {
					view = newBrokerView(resp.GetStatus(), nil)
				}
				line := fmt.Sprintf("%s  %-18s %s", time.Now().Format(time.TimeOnly), view.State, resp.GetStatus())
				if view.LastError != "" {
					line += "  " + view.LastError
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
		},
	}
	return cmd
}
