package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"go.uber.org/zap"
)

// Config holds generation settings for the plotting agent.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Stop        []string
	// PreviewRows is the number of data rows shown to the model.
	PreviewRows int
	// ContextTokens caps the prompt size when positive (MaxTokens is reserved for the answer).
	ContextTokens          int
	YearlyComputeCostCents float64
	// OnDelta receives partial output when the runtime can stream.
	OnDelta func(string)
}

// DefaultConfig mirrors the defaults of the llama.cpp deployment.
func DefaultConfig() Config {
	return Config{
		MaxTokens:              64,
		Temperature:            0.5,
		PreviewRows:            1,
		YearlyComputeCostCents: DefaultYearlyComputeCostCents,
	}
}

// Response is the JSON body returned to clients.
type Response struct {
	ChartData *chart.Payload `json:"chart_data"`
	Summary   string         `json:"summary"`
	Error     *string        `json:"error"`

	Err         error           `json:"-"`
	Raw         string          `json:"-"`
	Inference   chart.Inference `json:"-"`
	Diagnostics []*chart.Error  `json:"-"`
	Duration    time.Duration   `json:"-"`
	CostCents   float64         `json:"-"`
}

// Failed reports whether the response carries an error kind.
func (r Response) Failed() bool { return r.Error != nil }

// Agent asks a Runtime which chart fits a dataset and builds the payload from its answer.
type Agent struct {
	runtime ai.Runtime
	builder *chart.Builder
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time
}

// New returns an agent. A nil builder uses chart defaults; a nil logger discards logs.
func New(rt ai.Runtime, builder *chart.Builder, logger *zap.Logger, cfg Config) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = chart.NewBuilder(logger)
	}
	if cfg.YearlyComputeCostCents <= 0 {
		cfg.YearlyComputeCostCents = DefaultYearlyComputeCostCents
	}
	return &Agent{runtime: rt, builder: builder, logger: logger, cfg: cfg, now: time.Now}
}

// Process runs one prompt against ds. Failures are reported inside the response,
// never as a Go error, so the result can be sent to clients as is.
func (a *Agent) Process(ctx context.Context, ds *chart.Dataset, request string) Response {
	if a.runtime == nil {
		return failure(errors.New("no text-generation runtime configured"))
	}
	budget := 0
	if a.cfg.ContextTokens > 0 {
		budget = max(a.cfg.ContextTokens-a.cfg.MaxTokens, 1)
	}
	prompt := BuildPrompt(ds, request, a.cfg.PreviewRows, budget)

	start := a.now()
	resp, err := a.generate(ctx, ai.GenerateRequest{
		Model:       a.cfg.Model,
		Messages:    ai.UserMessage(prompt),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Stop:        a.cfg.Stop,
	})
	elapsed := a.now().Sub(start)
	cost := ComputeCostCents(a.cfg.YearlyComputeCostCents, elapsed)
	if err != nil {
		a.logger.Error("generation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		out := failure(fmt.Errorf("generate: %w", err))
		out.Duration, out.CostCents = elapsed, cost
		return out
	}
	raw := resp.Text()
	a.logger.Info("generation finished",
		zap.Duration("elapsed", elapsed),
		zap.Float64("cost_usd", cost/100),
		zap.Int("prompt_tokens", utils.CountTokens(prompt)),
		zap.String("request_id", resp.RequestID),
	)
	a.logger.Debug("raw model response", zap.String("response", raw))

	out := a.FromResponse(ds, raw)
	out.Duration, out.CostCents = elapsed, cost
	return out
}

func (a *Agent) generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	sr, ok := a.runtime.(ai.StreamRuntime)
	if !ok || a.cfg.OnDelta == nil {
		return a.runtime.Generate(ctx, req)
	}
	var sb strings.Builder
	err := sr.GenerateStream(ctx, req, func(d string) {
		sb.WriteString(d)
		a.cfg.OnDelta(d)
	})
	if err != nil {
		return nil, err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: sb.String()}}}}, nil
}

// FromResponse builds the chart from an already generated model answer.
func (a *Agent) FromResponse(ds *chart.Dataset, raw string) (out Response) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("chart synthesis panicked", zap.Any("panic", r))
			out = failure(fmt.Errorf("%v", r))
			out.Raw = raw
		}
	}()
	res, err := a.builder.Synthesize(ds, raw)
	if err != nil {
		a.logger.Warn("chart synthesis failed", zap.Error(err), zap.String("kind", string(chart.KindOf(err))))
		out = failure(err)
		out.Raw = raw
		out.Inference = chart.Infer(raw, columnsOf(ds))
		return out
	}
	return Response{
		ChartData:   res.Payload,
		Summary:     res.Summary,
		Raw:         raw,
		Inference:   res.Inference,
		Diagnostics: res.Diagnostics,
	}
}

func failure(err error) Response {
	kind := strings.ToUpper(string(chart.KindOf(err)))
	return Response{
		Summary: fmt.Sprintf("An unexpected error occurred: %v", err),
		Error:   &kind,
		Err:     err,
	}
}

func columnsOf(ds *chart.Dataset) []string {
	if ds == nil {
		return nil
	}
	return ds.Columns
}
