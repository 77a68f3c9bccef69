package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Config represents one completion request to an LLM provider.
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Images holds raw image bytes attached to the prompt for vision
	// models. Providers that cannot accept images must reject a config
	// that carries them.
	Images [][]byte
}

// Provider defines the interface for an LLM provider.
type Provider interface {
	Complete(ctx context.Context, config Config) (string, error)
}

// ImageMIME sniffs the content type of raw image bytes.
func ImageMIME(data []byte) string {
	return http.DetectContentType(data)
}

var registry = map[string]func() Provider{}

// Register makes a provider constructor available under name. Provider
// packages call it from init, mirroring how database/sql drivers hook in;
// callers pull them in with blank imports.
func Register(name string, fn func() Provider) {
	registry[strings.ToLower(name)] = fn
}

// ForName returns a fresh provider for the given name.
func ForName(name string) (Provider, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return fn(), nil
}

// NameFromEnv resolves the active provider from SHELFSCAN_PROVIDER,
// defaulting to gemini.
func NameFromEnv() string {
	name := strings.TrimSpace(os.Getenv("SHELFSCAN_PROVIDER"))
	if name == "" {
		return "gemini"
	}
	return strings.ToLower(name)
}

// DefaultModel returns the model to use for a provider when the caller
// does not name one explicitly.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			model = "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.2-vision"
		}
		return model
	default:
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return model
	}
}
