package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/config"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent broker start attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				dbPath = cfg.HistoryPath
			}
			if dbPath == "" {
				return errors.New("no history database; set history_path or " + config.EnvHistory)
			}

			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No broker runs recorded.")
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(runs))
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database path (defaults to history_path)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		pid := ""
		if run.PID != 0 {
			pid = strconv.Itoa(run.PID)
		}
		exit := ""
		if run.ExitCode != nil {
			exit = strconv.Itoa(*run.ExitCode)
		}
		duration := ""
		if run.EndedAt != nil {
			duration = run.Duration().Round(10 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(run.AttemptID),
			run.State.String(),
			pid,
			exit,
			humanize.Time(run.StartedAt),
			duration,
			strings.TrimSpace(run.Error),
		})
	}
	return renderTable(
		[]string{"Attempt", "State", "PID", "Exit", "Started", "Ran", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
