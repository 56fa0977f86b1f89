// Package llm wraps chat-completion providers behind a single Model interface
// so the story generator can treat every tier the same way.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/storyteller/internal/session"
)

// Params are the sampling settings, fixed per deployment.
type Params struct {
	Temperature float32
	MaxTokens   int
}

type Model interface {
	Name() string
	Complete(ctx context.Context, messages []session.Turn, params Params) (string, error)
}

// Config controls model construction.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// NewModel resolves a provider mode (auto|openai|mock) into a Model.
func NewModel(cfg Config) (Model, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIModel(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
		}
		return NewMockModel(cfg.Model), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for openai mode")
		}
		return NewOpenAIModel(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "mock":
		return NewMockModel(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider %q", cfg.Provider)
	}
}
