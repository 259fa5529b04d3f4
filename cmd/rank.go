package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	rankResponse string
	rankColumns  string
	rankFile     string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Show which chart types and columns a model answer mentions first",
	Example: `  chartloom rank --response "a pie chart of category and amount" --columns category,amount
  chartloom rank --response "bar of region vs sales" --file sales.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(rankResponse) == "" {
			return errors.New("--response is required")
		}
		var columns []string
		for _, c := range strings.Split(rankColumns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
		if rankFile != "" {
			ds, err := dataset.Load(rankFile, dataset.DefaultOptions())
			if err != nil {
				return err
			}
			columns = append(columns, ds.Columns...)
		}

		in := chart.Infer(rankResponse, columns)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, rankTable("Chart types", in.ChartTypes))
		if len(columns) > 0 {
			fmt.Fprintln(out, rankTable("Columns", in.Columns))
		}
		if ct, err := in.ChartType(); err == nil {
			fmt.Fprintf(out, "✓ Chart type: %s\n", ct)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %v\n", err)
		}
		return nil
	},
}

func rankTable(title string, r chart.Ranking) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Name", "Offset"})
	for i, c := range r {
		t.AppendRow(table.Row{i + 1, c.Name, c.Offset})
	}
	if len(r) == 0 {
		t.AppendRow(table.Row{"-", "(none)", "-"})
	}
	return t.Render()
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVar(&rankResponse, "response", "", "model answer to rank against")
	rankCmd.Flags().StringVar(&rankColumns, "columns", "", "comma-separated column names")
	rankCmd.Flags().StringVar(&rankFile, "file", "", "take column names from this CSV/TSV/XLSX header")
}
