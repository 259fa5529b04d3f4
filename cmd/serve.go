package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/chartloom-cli/internal/agent"
	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload and prompt endpoints over HTTP",
	Long: `Start the HTTP shell:

  GET  /              liveness message
  POST /upload-csv/   multipart "file" (text/csv), returns a bearer token
  POST /send-prompt   {"prompt": "..."} with Authorization: Bearer <token>

Stops gracefully on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		rt, provider, model, err := buildRuntime(c, runtimeOptions{ProviderFlag: serveProvider, ModelFlag: serveModel})
		if err != nil {
			return err
		}

		acfg := agent.DefaultConfig()
		acfg.Model = model
		acfg.MaxTokens = c.MaxTokens
		acfg.Temperature = c.Temperature
		acfg.PreviewRows = c.PreviewRows
		acfg.YearlyComputeCostCents = c.YearlyComputeCostCents
		if provider == ai.ProviderLlamaCLI {
			acfg.ContextTokens = c.LlamaCtxSize
		}
		builder := chart.NewBuilder(logger, chart.WithYTitle(c.YAxisTitle))
		ag := agent.New(rt, builder, logger, acfg)

		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		srv, err := server.New(server.Config{
			Addr:           addr,
			AllowedOrigins: c.AllowedOrigins,
			MaxUploadBytes: c.MaxUploadBytes,
			TokenSecret:    c.TokenSecret,
			TokenTTL:       c.TokenTTL(),
		}, ag, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving on %s (provider %s, model %s)\n", addr, provider, model)
		logger.Info("serve", zap.String("addr", addr), zap.String("provider", provider), zap.String("model", model))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "runtime provider (openrouter|ollama|llamacli); defaults to config")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model name, or .gguf path for llamacli; defaults to config")
}
