// Console rendering of the leaderboard.

package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/daryltucker/vlm-bench/internal/model"
)

// RenderLeaderboard prints records as a table, using the same columns as
// the CSV report.
func RenderLeaderboard(w io.Writer, records []model.Record) {
	if len(records) == 0 {
		return
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		fields := r.Fields()
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = f.Value
		}
		rows = append(rows, row)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(Header(records[0]))
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}
