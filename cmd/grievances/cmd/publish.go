package cmd

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bbmp-grievances/cmd/grievances/utils"
	devenv "bbmp-grievances/dev/env"
	"bbmp-grievances/internal/export"
	"bbmp-grievances/internal/publish"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var publishIn string

func init() {
	publishCmd.Flags().StringVar(&publishIn, "in", "", "directory of the written dataset (overrides data_dir)")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the dataset files to the configured bucket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if publishIn != "" {
			cfg.DataDir = publishIn
		}

		dataDir, err := devenv.ResolvePath(cfg.DataDir)
		if err != nil {
			return err
		}
		parquetPath := filepath.Join(dataDir, export.ParquetName)
		records, err := export.ReadParquet(parquetPath)
		if err != nil {
			return err
		}
		info, err := os.Stat(parquetPath)
		if err != nil {
			return err
		}

		publisher, err := publish.New(cfg.Publish)
		if err != nil {
			return err
		}
		uploaded, err := publisher.Upload(
			ctx,
			[]string{parquetPath, filepath.Join(dataDir, export.CSVName)},
			map[string]string{
				"records":      strconv.Itoa(len(records)),
				"generated-at": info.ModTime().UTC().Format(time.RFC3339),
			},
		)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"File", "Key", "Bytes"})
		for _, u := range uploaded {
			t.AppendRow(table.Row{u.File, u.Key, u.Size})
		}
		t.Render()
		return nil
	},
}
