package ai

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.gguf"), []byte("gguf"), 0o644))
	return dir
}

func TestLlamaCLIGenerate(t *testing.T) {
	dir := modelDir(t)
	l := NewLlamaCLI("/opt/llama-cli", dir, 0, 0)
	var gotName string
	var gotArgs []string
	l.run = func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("Question?\n Answer: bar chart, region, sales\n### extra"), []byte("load time"), nil
	}

	resp, err := l.Generate(context.Background(), GenerateRequest{
		Messages:    UserMessage("Question?"),
		MaxTokens:   32,
		Temperature: 0.7,
		Stop:        []string{"###"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer: bar chart, region, sales", resp.Text())
	assert.Equal(t, "/opt/llama-cli", gotName)
	assert.Equal(t, []string{
		"-m", filepath.Join(dir, "tiny.gguf"),
		"-n", "32",
		"-t", "24",
		"-p", "Question?",
		"-ngl", "0",
		"-c", "256",
		"--temp", "0.7",
		"-b", "1",
		"--reverse-prompt", "###",
	}, gotArgs)
}

func TestLlamaCLIFailures(t *testing.T) {
	dir := modelDir(t)

	l := NewLlamaCLI("", dir, 4, 512)
	l.run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, nil, exec.ErrNotFound
	}
	_, err := l.Generate(context.Background(), GenerateRequest{Messages: UserMessage("x")})
	var ue *UnreachableError
	assert.ErrorAs(t, err, &ue)

	l.run = func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, []byte("warming up\nfailed to load model"), errors.New("exit status 1")
	}
	_, err = l.Generate(context.Background(), GenerateRequest{Messages: UserMessage("x")})
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "failed to load model")

	_, err = l.Generate(context.Background(), GenerateRequest{})
	assert.EqualError(t, err, "messages cannot be empty")
}

func TestResolveModelPath(t *testing.T) {
	dir := modelDir(t)
	p, err := resolveModelPath(dir)
	require.NoError(t, err)
	assert.Equal(t, "tiny.gguf", filepath.Base(p))

	_, err = resolveModelPath(t.TempDir())
	assert.ErrorContains(t, err, "no .gguf model")

	_, err = resolveModelPath("")
	assert.ErrorContains(t, err, "llama_model_path")
}

func TestCleanOutput(t *testing.T) {
	assert.Equal(t, "pie", cleanOutput("  prompt pie  ", "prompt", nil))
	assert.Equal(t, "bar", cleanOutput("bar\nUser:", "", []string{"", "User:"}))
	assert.Equal(t, "other text", cleanOutput("other text", "prompt", []string{"zzz"}))
}

func TestRegistryProviders(t *testing.T) {
	assert.Equal(t, []string{ProviderLlamaCLI, ProviderOllama, ProviderOpenRouter}, Providers())
	rt, ok := GetRuntime(ProviderLlamaCLI, RuntimeConfig{ModelPath: "m.gguf"})
	require.True(t, ok)
	assert.IsType(t, &LlamaCLI{}, rt)
	_, ok = GetRuntime("nope", RuntimeConfig{})
	assert.False(t, ok)
}
