package render

import (
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table lists the payload points under their label and value keys.
func Table(p *chart.Payload) string {
	if p == nil {
		return ""
	}
	t := table.NewWriter()
	t.SetTitle("%s chart", p.ChartType)
	t.AppendHeader(table.Row{p.LabelsKey, p.ValuesKey})
	for _, pt := range p.Data {
		t.AppendRow(table.Row{chart.FormatCell(pt.Label), chart.FormatCell(pt.Value)})
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t.Render()
}
