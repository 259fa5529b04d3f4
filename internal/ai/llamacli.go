package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// LlamaCLI runs a local llama.cpp binary once per request and returns its stdout.
type LlamaCLI struct {
	binary  string
	model   string
	threads int
	ctxSize int
	run     commandRunner
}

type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// NewLlamaCLI creates a runtime for the given llama-cli binary and .gguf model.
// An empty binary resolves to "llama-cli" on PATH. A model path naming a
// directory selects the first .gguf file inside it.
func NewLlamaCLI(binary, model string, threads, ctxSize int) *LlamaCLI {
	if binary == "" {
		binary = "llama-cli"
	}
	if threads <= 0 {
		threads = 24
	}
	if ctxSize <= 0 {
		ctxSize = 256
	}
	return &LlamaCLI{binary: binary, model: model, threads: threads, ctxSize: ctxSize, run: execRunner}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Generate concatenates the request messages into one prompt and runs the binary.
// The model file is taken from req.Model when set, else from the configured path.
func (l *LlamaCLI) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	model := l.model
	if req.Model != "" && strings.HasSuffix(strings.ToLower(req.Model), ".gguf") {
		model = req.Model
	}
	model, err := resolveModelPath(model)
	if err != nil {
		return nil, err
	}
	prompt := joinMessages(req.Messages)
	args := l.args(model, prompt, req)

	stdout, stderr, err := l.run(ctx, l.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, &UnreachableError{Host: l.binary, Err: err}
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &ExecError{Command: l.binary, ExitCode: code, Stderr: string(stderr), Err: err}
	}
	text := cleanOutput(string(stdout), prompt, req.Stop)
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: text}}},
	}, nil
}

func (l *LlamaCLI) args(model, prompt string, req GenerateRequest) []string {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 64
	}
	temp := req.Temperature
	if temp <= 0 {
		temp = 0.5
	}
	args := []string{
		"-m", model,
		"-n", strconv.Itoa(maxTokens),
		"-t", strconv.Itoa(l.threads),
		"-p", prompt,
		"-ngl", "0",
		"-c", strconv.Itoa(l.ctxSize),
		"--temp", strconv.FormatFloat(temp, 'f', -1, 64),
		"-b", "1",
	}
	for _, s := range req.Stop {
		args = append(args, "--reverse-prompt", s)
	}
	return args
}

func joinMessages(msgs []Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// cleanOutput drops the prompt echo llama.cpp prints before the completion and
// cuts the text at the first configured stop sequence present.
func cleanOutput(out, prompt string, stop []string) string {
	out = strings.TrimSpace(out)
	if prompt != "" && strings.HasPrefix(out, prompt) {
		out = strings.TrimSpace(out[len(prompt):])
	}
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(out, s); i >= 0 {
			return strings.TrimSpace(out[:i])
		}
	}
	return out
}

func resolveModelPath(p string) (string, error) {
	if p == "" {
		return "", errors.New("llama model path is not configured (set llama_model_path)")
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("llama model: %w", err)
	}
	if !info.IsDir() {
		return p, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return "", fmt.Errorf("read models dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			return filepath.Join(p, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no .gguf model found in %s", p)
}
