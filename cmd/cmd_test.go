package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRuntime struct{ reply string }

func (s scriptedRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: s.reply}}}}, nil
}

func init() {
	ai.RegisterRuntime("scripted", func(ai.RuntimeConfig) ai.Runtime {
		return scriptedRuntime{reply: "A bar chart of region against sales, because totals compare well."}
	})
}

// resetFlags clears values and Changed state left behind by earlier invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command and returns stdout and stderr. Callers isolate HOME.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeSales(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	data := "region,sales\nNorth,10\nSouth,20\nNorth,30\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestChartFromResponse(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := writeSales(t)
	dir := t.TempDir()
	payload := filepath.Join(dir, "chart.json")
	img := filepath.Join(dir, "chart.png")

	out, errOut, err := runCmd(t, "chart", file,
		"--response", "I'd use a bar chart with region and sales",
		"--output", payload, "--png", img, "--table")
	require.NoError(t, err)
	assert.Contains(t, out, "bar chart")
	assert.Contains(t, out, "North")
	assert.Contains(t, out, "Summary:")
	assert.Contains(t, errOut, "✓ Wrote chart payload")

	b, err := os.ReadFile(payload)
	require.NoError(t, err)
	var got struct {
		ChartType string           `json:"chartType"`
		Data      []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "bar", got.ChartType)
	require.Len(t, got.Data, 2)
	assert.Equal(t, "North", got.Data[0]["region"])
	assert.EqualValues(t, 20, got.Data[0]["sales"])

	f, err := os.Open(img)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)
}

func TestChartJSONFailure(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := writeSales(t)
	out, _, err := runCmd(t, "chart", file, "--response", "no idea", "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_CHART_TYPE")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got["chart_data"])
	assert.Equal(t, "NO_CHART_TYPE", got["error"])
}

func TestChartWithScriptedRuntime(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := writeSales(t)
	out, _, err := runCmd(t, "chart", file, "--prompt", "compare regions", "--provider", "scripted", "--json")
	require.NoError(t, err)
	var got struct {
		ChartData struct {
			ChartType string `json:"chartType"`
		} `json:"chart_data"`
		Error *string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Error)
	assert.Equal(t, "bar", got.ChartData.ChartType)
}

func TestChartShowData(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, _, err := runCmd(t, "chart", writeSales(t), "--response", "line chart of region and sales", "--show-data")
	require.NoError(t, err)
	assert.Contains(t, out, "region")
	assert.Contains(t, out, "line chart")
	assert.Contains(t, out, "Summary: line chart of region and sales")
}

func TestChartArgumentErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := writeSales(t)
	_, _, err := runCmd(t, "chart", file)
	assert.ErrorContains(t, err, "exactly one of --prompt or --response")

	_, _, err = runCmd(t, "chart", file, "--prompt", "x", "--response", "y")
	assert.ErrorContains(t, err, "exactly one of --prompt or --response")

	_, _, err = runCmd(t, "chart", file, "--response", "bar", "--delimiter", ";;")
	assert.ErrorContains(t, err, "single character")

	_, _, err = runCmd(t, "chart", file, "--prompt", "x", "--provider", "nope")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestRank(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, errOut, err := runCmd(t, "rank", "--response", "a line chart, or maybe bar: amount by month", "--columns", "month, amount")
	require.NoError(t, err)
	assert.Empty(t, errOut)
	assert.Contains(t, out, "Chart types")
	assert.Less(t, strings.Index(out, "line"), strings.Index(out, "bar"))
	assert.Less(t, strings.Index(out, "amount"), strings.Index(out, "month"))
	assert.Contains(t, out, "✓ Chart type: line")

	out, errOut, err = runCmd(t, "rank", "--response", "nothing useful", "--file", writeSales(t))
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
	assert.Contains(t, errOut, "⚠")
}

func TestConfigSetShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, _, err := runCmd(t, "config", "set", "api_key", "sk-or-abcdef123456")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Saved api_key")

	_, _, err = runCmd(t, "config", "set", "preview_rows", "0")
	assert.Error(t, err)

	out, _, err = runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key: sk-****456")
	assert.NotContains(t, out, "abcdef")
	assert.Contains(t, out, "default_provider: ollama")
}

func TestExplainRuntimeError(t *testing.T) {
	err := explainRuntimeError(&ai.UnreachableError{Host: "http://127.0.0.1:1", Err: errors.New("refused")}, ai.ProviderOllama, "llama3")
	assert.Contains(t, err.Error(), "Ollama not reachable at http://127.0.0.1:1")

	err = explainRuntimeError(&ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}, ai.ProviderOllama, "llama3")
	assert.Contains(t, err.Error(), "ollama pull llama3")

	err = explainRuntimeError(&ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}, RetryAfter: 3 * time.Second}, ai.ProviderOpenRouter, "m")
	assert.Contains(t, err.Error(), "~3s")

	plain := errors.New("boom")
	assert.Equal(t, plain, explainRuntimeError(plain, ai.ProviderOpenRouter, "m"))
}

func TestBuildRuntimeAliases(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg = nil
	c, err := currentConfig()
	require.NoError(t, err)

	_, provider, model, err := buildRuntime(c, runtimeOptions{ProviderFlag: "local"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOllama, provider)
	assert.Equal(t, c.DefaultModel, model)

	rt, provider, model, err := buildRuntime(c, runtimeOptions{ProviderFlag: "llama-cli", ModelFlag: "/m/q.gguf"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderLlamaCLI, provider)
	assert.Equal(t, "/m/q.gguf", model)
	assert.IsType(t, &ai.LlamaCLI{}, rt)
}
