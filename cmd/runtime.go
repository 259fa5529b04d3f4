package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
}

// buildRuntime resolves provider and model from flags, then config, then defaults.
func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, string, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if provider == "" {
		provider = strings.ToLower(c.DefaultProvider)
	}
	switch provider {
	case "", "local":
		provider = ai.ProviderOllama
	case "llama", "llama-cli", "llama.cpp":
		provider = ai.ProviderLlamaCLI
	}

	model := strings.TrimSpace(opts.ModelFlag)
	if model == "" {
		model = c.DefaultModel
	}
	rc := c.RuntimeConfig()
	if provider == ai.ProviderLlamaCLI && strings.HasSuffix(strings.ToLower(model), ".gguf") {
		rc.ModelPath = model
	}
	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		return nil, "", "", fmt.Errorf("unknown provider: %s (use %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, provider, model, nil
}

// explainRuntimeError adds a hint for common transport failures.
func explainRuntimeError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
		execErr *ai.ExecError
	)
	switch {
	case errors.As(err, &unreach):
		switch provider {
		case ai.ProviderOllama:
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host' or CHARTLOOM_OLLAMA_HOST): %w", unreach.Host, err)
		case ai.ProviderLlamaCLI:
			return fmt.Errorf("llama.cpp binary not found (%s). Set config 'llama_cli_path': %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &execErr):
		return fmt.Errorf("llama.cpp run failed. Check 'llama_model_path' and 'llama_ctx_size': %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or api_key in config (~/.chartloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer preview rows or a smaller max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}
