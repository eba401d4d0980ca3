package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/history"
	"github.com/walteh/deployrc/pkg/status"
)

// HistoryRows renders journaled runs as table rows.
func HistoryRows(runs []history.Run) [][]string {
	rows := [][]string{{"STARTED", "RUN", "PROFILE", "PRESET", "OK", "FAILED", "SKIPPED", "RESULT"}}
	for _, r := range runs {
		result := "ok"
		switch {
		case r.Message != "":
			result = "aborted: " + r.Message
		case r.Failed > 0:
			result = "failed"
		case r.DryRun:
			result = "dry-run"
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.RunID,
			r.Profile,
			r.Preset,
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			result,
		})
	}
	return rows
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(ro *opts.RootOpts) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := history.Open(ctx, ro.Config.Settings.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				entries, err := store.Entries(ctx, runID)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					ro.UserLogger.LogValidation(false, "no entries for run "+runID, nil)
					return nil
				}
				for _, e := range entries {
					fmt.Fprintln(ro.Out, status.FormatEntryLine(e))
					if e.Message != "" {
						fmt.Fprintf(ro.Out, "      %s\n", e.Message)
					}
				}
				return nil
			}

			runs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				ro.UserLogger.LogStateChange("No runs recorded yet")
				return nil
			}
			return ro.UserLogger.Table(HistoryRows(runs))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the entries of one run")

	return cmd
}
