package dataset

import (
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Preview renders the header and the first n rows as a markdown table.
// A non-positive n renders the header only.
func Preview(ds *chart.Dataset, n int) string {
	if ds == nil || len(ds.Columns) == 0 {
		return ""
	}
	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(headerRow(ds.Columns))
	for i := 0; i < n && i < ds.Len(); i++ {
		t.AppendRow(cellRow(ds.Columns, ds.Rows[i]))
	}
	return t.RenderMarkdown()
}

// Table renders every row of ds as a boxed text table.
func Table(ds *chart.Dataset) string {
	if ds == nil || len(ds.Columns) == 0 {
		return ""
	}
	t := table.NewWriter()
	t.AppendHeader(headerRow(ds.Columns))
	for _, r := range ds.Rows {
		t.AppendRow(cellRow(ds.Columns, r))
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t.Render()
}

func headerRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func cellRow(cols []string, r chart.Row) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = chart.FormatCell(r[c])
	}
	return row
}
