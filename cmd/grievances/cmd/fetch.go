package cmd

import (
	"time"

	"bbmp-grievances/cmd/grievances/utils"
	"bbmp-grievances/internal/fetcher"
	"bbmp-grievances/internal/manifest"
	"bbmp-grievances/internal/notify"
	"bbmp-grievances/internal/portal"
	"bbmp-grievances/internal/rawstore"
	"bbmp-grievances/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	fetchOut        string
	fetchRetryEmpty bool
	fetchKeepEmpty  bool
)

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "directory raw responses are written to (overrides raw_dir)")
	fetchCmd.Flags().BoolVar(&fetchRetryEmpty, "retry-empty", false, "request combinations known to be empty again")
	fetchCmd.Flags().BoolVar(&fetchKeepEmpty, "keep-empty", false, "also store responses without a grievance")
	rootCmd.AddCommand(fetchCmd)
}

func fetchSummary(s fetcher.Summary) notify.Summary {
	title := "fetch finished"
	if s.Interrupted {
		title = "fetch interrupted"
	}
	return notify.Summary{
		Title: title,
		Fields: []notify.Field{
			{Name: "run", Value: s.RunID},
			{Name: "visited", Value: s.Visited},
			{Name: "saved", Value: s.Saved},
			{Name: "empty", Value: s.Empty},
			{Name: "failed", Value: s.Failed},
			{Name: "already stored", Value: s.Skipped},
			{Name: "known empty", Value: s.SkippedEmpty},
			{Name: "skips ahead", Value: s.Jumps},
			{Name: "abandoned slices", Value: s.Abandoned},
		},
	}
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Request every configured parameter combination and store the raw responses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if fetchOut != "" {
			cfg.RawDir = fetchOut
		}
		if cmd.Flags().Changed("retry-empty") {
			cfg.Fetch.RetryEmpty = fetchRetryEmpty
		}
		if cmd.Flags().Changed("keep-empty") {
			cfg.Fetch.KeepEmpty = fetchKeepEmpty
		}

		store, err := rawstore.Create(cfg.RawDir)
		if err != nil {
			return err
		}
		ledger, err := manifest.Open(cfg.ManifestConfig())
		if err != nil {
			return err
		}
		defer ledger.Close()

		client, err := portal.NewClient(cfg.Portal, nil)
		if err != nil {
			return err
		}

		telemetry.InstrumentPerfStats(ctx, 15*time.Second)

		f := fetcher.Fetcher{
			Client:   client,
			Store:    store,
			Manifest: ledger,
			Space:    cfg.Space(),
			Options:  cfg.Fetch,
		}
		summary, err := f.Run(ctx)
		if err != nil {
			return err
		}

		out := fetchSummary(summary)
		utils.PrintSummary(out)
		notifyAfter(ctx, out)
		return nil
	},
}
