package utils

import (
	"os"

	"bbmp-grievances/internal/notify"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// PrintSummary renders a stage summary to stdout.
func PrintSummary(summary notify.Summary) {
	t := NewTable()
	t.SetTitle(summary.Title)
	for _, f := range summary.Fields {
		t.AppendRow(table.Row{f.Name, f.Value})
	}
	t.Render()
}
