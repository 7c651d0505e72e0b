package cmd

import (
	"time"

	"bbmp-grievances/cmd/grievances/utils"
	"bbmp-grievances/internal/manifest"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the most recent fetch runs recorded in the manifest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := manifest.Open(cfg.ManifestConfig())
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Run", "Started", "Finished", "Saved", "Empty", "Failed", "Skipped"})
		for _, run := range runs {
			finished := "-"
			if run.FinishedAt != nil {
				finished = run.FinishedAt.Local().Format(time.DateTime)
			}
			t.AppendRow(table.Row{
				run.ID,
				run.StartedAt.Local().Format(time.DateTime),
				finished,
				run.Saved,
				run.Empty,
				run.Failed,
				run.Skipped,
			})
		}
		t.Render()
		return nil
	},
}
