package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"
	"unicode/utf8"

	"github.com/KaramelBytes/chartloom-cli/internal/agent"
	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/render"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	chartPrompt      string
	chartResponse    string
	chartProvider    string
	chartModel       string
	chartMaxTokens   int
	chartTemperature float64
	chartSheetName   string
	chartSheetIndex  int
	chartDelimiter   string
	chartYTitle      string
	chartPreviewRows int
	chartPNG         string
	chartOutput      string
	chartTable       bool
	chartJSON        bool
	chartTimeout     time.Duration
	chartStream      bool
	chartShowData    bool
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Build a chart payload from a CSV/TSV/XLSX file",
	Long: `Build a chart payload from a tabular file.

With --prompt the configured model is asked which chart type and columns fit the
request. With --response an existing model answer is used instead and no model
is called.`,
	Example: `  chartloom chart sales.csv --prompt "compare sales by region"
  chartloom chart sales.csv --response "a bar chart of region and sales" --png sales.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (chartPrompt == "") == (chartResponse == "") {
			return errors.New("exactly one of --prompt or --response is required")
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}

		opt := dataset.DefaultOptions()
		opt.SheetName = chartSheetName
		opt.SheetIndex = chartSheetIndex
		if chartDelimiter != "" {
			r, size := utf8.DecodeRuneInString(chartDelimiter)
			if size != len(chartDelimiter) {
				return fmt.Errorf("--delimiter must be a single character, got %q", chartDelimiter)
			}
			opt.Delimiter = r
		}
		ds, err := dataset.Load(args[0], opt)
		if err != nil {
			return err
		}
		logger.Debug("dataset loaded", zap.String("path", args[0]), zap.Int("rows", ds.Len()), zap.Strings("columns", ds.Columns))
		if chartShowData {
			fmt.Fprintln(cmd.OutOrStdout(), dataset.Table(ds))
		}

		yTitle := c.YAxisTitle
		if cmd.Flags().Changed("y-title") {
			yTitle = chartYTitle
		}
		builder := chart.NewBuilder(logger, chart.WithYTitle(yTitle))

		acfg := agent.DefaultConfig()
		acfg.MaxTokens = c.MaxTokens
		acfg.Temperature = c.Temperature
		acfg.PreviewRows = c.PreviewRows
		acfg.YearlyComputeCostCents = c.YearlyComputeCostCents
		if cmd.Flags().Changed("max-tokens") {
			acfg.MaxTokens = chartMaxTokens
		}
		if cmd.Flags().Changed("temperature") {
			acfg.Temperature = chartTemperature
		}
		if cmd.Flags().Changed("preview-rows") {
			acfg.PreviewRows = chartPreviewRows
		}

		var resp agent.Response
		var provider string
		if chartResponse != "" {
			resp = agent.New(nil, builder, logger, acfg).FromResponse(ds, chartResponse)
		} else {
			var rt ai.Runtime
			rt, provider, acfg.Model, err = buildRuntime(c, runtimeOptions{ProviderFlag: chartProvider, ModelFlag: chartModel})
			if err != nil {
				return err
			}
			if provider == ai.ProviderLlamaCLI {
				acfg.ContextTokens = c.LlamaCtxSize
			}
			if chartStream {
				acfg.OnDelta = func(d string) { fmt.Fprint(cmd.ErrOrStderr(), d) }
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if chartTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, chartTimeout)
				defer cancel()
			}
			resp = agent.New(rt, builder, logger, acfg).Process(ctx, ds, chartPrompt)
			if chartStream {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
		}
		return reportChart(cmd, resp, provider, acfg.Model)
	},
}

func reportChart(cmd *cobra.Command, resp agent.Response, provider, model string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	for _, d := range resp.Diagnostics {
		fmt.Fprintf(errOut, "⚠ %v\n", d)
	}
	if chartJSON {
		b, err := utils.PrettyJSON(resp)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	}
	if resp.Failed() {
		if chart.KindOf(resp.Err) == chart.KindUnexpected && provider != "" {
			return explainRuntimeError(resp.Err, provider, model)
		}
		return fmt.Errorf("%s: %w", *resp.Error, resp.Err)
	}

	if chartOutput != "" {
		b, err := utils.PrettyJSON(resp.ChartData)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(chartOutput, b); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "✓ Wrote chart payload to %s\n", chartOutput)
	}
	if chartPNG != "" {
		var buf bytes.Buffer
		if err := render.PNG(&buf, resp.ChartData); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(chartPNG, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "✓ Wrote chart image to %s\n", chartPNG)
	}
	if chartJSON {
		return nil
	}
	if chartTable || (chartOutput == "" && chartPNG == "") {
		fmt.Fprintln(out, render.Table(resp.ChartData))
	}
	fmt.Fprintf(out, "Summary: %s\n", resp.Summary)
	if resp.Duration > 0 {
		fmt.Fprintf(out, "Model time: %s (compute cost $%.8f)\n", resp.Duration.Round(time.Millisecond), resp.CostCents/100)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chartCmd)
	f := chartCmd.Flags()
	f.StringVar(&chartPrompt, "prompt", "", "natural-language request sent to the model")
	f.StringVar(&chartResponse, "response", "", "use this model answer instead of calling a model")
	f.StringVar(&chartProvider, "provider", "", "runtime provider (openrouter|ollama|llamacli); defaults to config")
	f.StringVar(&chartModel, "model", "", "model name, or .gguf path for llamacli; defaults to config")
	f.IntVar(&chartMaxTokens, "max-tokens", 64, "max tokens the model may generate")
	f.Float64Var(&chartTemperature, "temperature", 0.5, "sampling temperature")
	f.StringVar(&chartSheetName, "sheet-name", "", "XLSX: sheet name to read")
	f.IntVar(&chartSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index when --sheet-name is not set")
	f.StringVar(&chartDelimiter, "delimiter", "", "CSV: field delimiter (default: comma, tab for .tsv)")
	f.StringVar(&chartYTitle, "y-title", chart.DefaultYTitle, "y-axis title for bar and line charts")
	f.IntVar(&chartPreviewRows, "preview-rows", 1, "data rows shown to the model")
	f.StringVar(&chartPNG, "png", "", "write a PNG preview to this path")
	f.StringVar(&chartOutput, "output", "", "write the chart payload JSON to this path")
	f.BoolVar(&chartTable, "table", false, "print the chart points as a table")
	f.BoolVar(&chartJSON, "json", false, "print the full response as JSON")
	f.BoolVar(&chartStream, "stream", false, "echo model output to stderr as it is generated (openrouter, ollama)")
	f.BoolVar(&chartShowData, "show-data", false, "print the loaded dataset before charting")
	f.DurationVar(&chartTimeout, "timeout", 0, "abort model generation after this long (0 = no limit)")
}
