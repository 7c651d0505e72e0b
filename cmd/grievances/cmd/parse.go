package cmd

import (
	"log/slog"

	"bbmp-grievances/cmd/grievances/utils"
	"bbmp-grievances/internal/export"
	"bbmp-grievances/internal/extractor"
	"bbmp-grievances/internal/notify"

	"github.com/spf13/cobra"
)

var (
	parseIn   string
	parseOut  string
	parseFull bool
)

func init() {
	parseCmd.Flags().StringVar(&parseIn, "in", "", "directory of raw responses (overrides raw_dir)")
	parseCmd.Flags().StringVar(&parseOut, "out", "", "directory the dataset is written to (overrides data_dir)")
	parseCmd.Flags().BoolVar(&parseFull, "full", false, "also write the parquet file with every parsed field")
	rootCmd.AddCommand(parseCmd)
}

func parseSummary(stats extractor.Stats, outputs export.Outputs) notify.Summary {
	fields := []notify.Field{
		{Name: "files", Value: stats.Files},
		{Name: "files without rows", Value: stats.FilesWithoutRows},
		{Name: "rows", Value: stats.Rows},
		{Name: "skipped rows", Value: stats.SkippedRows},
		{Name: "duplicates", Value: stats.Duplicates},
		{Name: "unparsable dates", Value: stats.DateWarnings},
		{Name: "unknown statuses", Value: stats.StatusWarnings},
		{Name: "records", Value: stats.Records},
	}
	for _, file := range outputs.Files() {
		fields = append(fields, notify.Field{Name: "wrote", Value: file})
	}
	return notify.Summary{Title: "parse finished", Fields: fields}
}

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Extract grievances from the raw responses and write the dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if parseIn != "" {
			cfg.RawDir = parseIn
		}
		if parseOut != "" {
			cfg.DataDir = parseOut
		}

		result, err := extractor.Extractor{}.Run(ctx, cfg.RawDir)
		if err != nil {
			return err
		}
		if len(result.Records) == 0 {
			slog.WarnContext(ctx, "no grievances were extracted, writing empty outputs", "raw_dir", cfg.RawDir)
		}

		outputs, err := export.WriteAll(ctx, cfg.DataDir, result.Records, parseFull || cfg.FullOutput)
		if err != nil {
			return err
		}

		out := parseSummary(result.Stats, outputs)
		utils.PrintSummary(out)
		notifyAfter(ctx, out)
		return nil
	},
}
