package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "CHARTLOOM"
	dirName   = ".chartloom"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes
	OllamaHost     string `mapstructure:"ollama_host" yaml:"ollama_host"`
	LlamaCLIPath   string `mapstructure:"llama_cli_path" yaml:"llama_cli_path"`
	LlamaModelPath string `mapstructure:"llama_model_path" yaml:"llama_model_path"`
	LlamaThreads   int    `mapstructure:"llama_threads" yaml:"llama_threads"`
	LlamaCtxSize   int    `mapstructure:"llama_ctx_size" yaml:"llama_ctx_size"`

	// HTTP server
	ServerAddr     string   `mapstructure:"server_addr" yaml:"server_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	TokenSecret    string   `mapstructure:"token_secret" yaml:"token_secret"`
	TokenTTLMin    int      `mapstructure:"token_ttl_min" yaml:"token_ttl_min"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	// Chart building
	PreviewRows            int     `mapstructure:"preview_rows" yaml:"preview_rows"`
	YearlyComputeCostCents float64 `mapstructure:"yearly_compute_cost_cents" yaml:"yearly_compute_cost_cents"`
	YAxisTitle             string  `mapstructure:"y_axis_title" yaml:"y_axis_title"`
}

var defaults = map[string]any{
	"default_model":             "llama3:latest",
	"default_provider":          ai.ProviderOllama,
	"api_key":                   "",
	"max_tokens":                64,
	"temperature":               0.5,
	"http_timeout_sec":          60,
	"retry_max_attempts":        3,
	"retry_base_delay_ms":       500,
	"retry_max_delay_ms":        4000,
	"ollama_host":               "http://127.0.0.1:11434",
	"llama_cli_path":            "llama-cli",
	"llama_model_path":          "",
	"llama_threads":             24,
	"llama_ctx_size":            256,
	"server_addr":               ":8000",
	"allowed_origins":           []string{"http://localhost:5173", "http://localhost:3000"},
	"token_secret":              "",
	"token_ttl_min":             30,
	"max_upload_bytes":          5 << 20,
	"preview_rows":              1,
	"yearly_compute_cost_cents": 1500,
	"y_axis_title":              "Value",
}

// Keys lists every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults. A .env file in the
// working directory is loaded into the process environment first when present.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", envPrefix+"_API_KEY", "OPENROUTER_API_KEY")

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if p == "local" {
			p = ai.ProviderOllama
		}
		if _, ok := ai.GetRuntime(p, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid default_provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.DefaultProvider = p
	case "max_tokens":
		err = setPositive(&c.MaxTokens, key, val)
	case "temperature":
		var f float64
		if f, err = cast.ToFloat64E(val); err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature (0..2): %q", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		err = setPositive(&c.HTTPTimeoutSec, key, val)
	case "retry_max_attempts":
		err = setPositive(&c.RetryMaxAttempts, key, val)
	case "retry_base_delay_ms":
		err = setPositive(&c.RetryBaseDelayMs, key, val)
	case "retry_max_delay_ms":
		err = setPositive(&c.RetryMaxDelayMs, key, val)
	case "ollama_host":
		c.OllamaHost = strings.TrimRight(val, "/")
	case "llama_cli_path":
		c.LlamaCLIPath = val
	case "llama_model_path":
		c.LlamaModelPath = val
	case "llama_threads":
		err = setPositive(&c.LlamaThreads, key, val)
	case "llama_ctx_size":
		err = setPositive(&c.LlamaCtxSize, key, val)
	case "server_addr":
		c.ServerAddr = val
	case "allowed_origins":
		c.AllowedOrigins = splitList(val)
	case "token_secret":
		c.TokenSecret = val
	case "token_ttl_min":
		err = setPositive(&c.TokenTTLMin, key, val)
	case "max_upload_bytes":
		var n int
		if n, err = positiveInt(key, val); err == nil {
			c.MaxUploadBytes = int64(n)
		}
	case "preview_rows":
		err = setPositive(&c.PreviewRows, key, val)
	case "yearly_compute_cost_cents":
		var f float64
		if f, err = cast.ToFloat64E(val); err != nil || f < 0 {
			return fmt.Errorf("invalid float for yearly_compute_cost_cents: %q", val)
		}
		c.YearlyComputeCostCents = f
	case "y_axis_title":
		c.YAxisTitle = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Display returns key/value pairs for printing with secrets masked.
func (c *Global) Display() [][2]string {
	return [][2]string{
		{"default_provider", c.DefaultProvider},
		{"default_model", c.DefaultModel},
		{"api_key", Mask(c.APIKey)},
		{"max_tokens", cast.ToString(c.MaxTokens)},
		{"temperature", cast.ToString(c.Temperature)},
		{"http_timeout_sec", cast.ToString(c.HTTPTimeoutSec)},
		{"retry_max_attempts", cast.ToString(c.RetryMaxAttempts)},
		{"retry_base_delay_ms", cast.ToString(c.RetryBaseDelayMs)},
		{"retry_max_delay_ms", cast.ToString(c.RetryMaxDelayMs)},
		{"ollama_host", c.OllamaHost},
		{"llama_cli_path", c.LlamaCLIPath},
		{"llama_model_path", c.LlamaModelPath},
		{"llama_threads", cast.ToString(c.LlamaThreads)},
		{"llama_ctx_size", cast.ToString(c.LlamaCtxSize)},
		{"server_addr", c.ServerAddr},
		{"allowed_origins", strings.Join(c.AllowedOrigins, ",")},
		{"token_secret", Mask(c.TokenSecret)},
		{"token_ttl_min", cast.ToString(c.TokenTTLMin)},
		{"max_upload_bytes", cast.ToString(c.MaxUploadBytes)},
		{"preview_rows", cast.ToString(c.PreviewRows)},
		{"yearly_compute_cost_cents", cast.ToString(c.YearlyComputeCostCents)},
		{"y_axis_title", c.YAxisTitle},
	}
}

// RuntimeConfig maps the settings onto the generic runtime knobs.
func (c *Global) RuntimeConfig() ai.RuntimeConfig {
	return ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		Host:        c.OllamaHost,
		BinaryPath:  c.LlamaCLIPath,
		ModelPath:   c.LlamaModelPath,
		Threads:     c.LlamaThreads,
		CtxSize:     c.LlamaCtxSize,
	}
}

// TokenTTL returns the upload token lifetime.
func (c *Global) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}

// Mask hides all but the edges of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

func positiveInt(key, val string) (int, error) {
	i, err := cast.ToIntE(strings.TrimSpace(val))
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid positive int for %s: %q", key, val)
	}
	return i, nil
}

func setPositive(dst *int, key, val string) error {
	i, err := positiveInt(key, val)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
