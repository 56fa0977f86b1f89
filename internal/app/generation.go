package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ent0n29/storyteller/internal/config"
	"github.com/ent0n29/storyteller/internal/llm"
	"github.com/ent0n29/storyteller/internal/story"
)

type generationSetup struct {
	primary          llm.Model
	secondary        llm.Model
	resolvedProvider string
}

func resolveGenerationModels(cfg config.Config) (generationSetup, error) {
	build := func(model string) (llm.Model, error) {
		return llm.NewModel(llm.Config{
			Provider: cfg.GenerationProvider,
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    model,
		})
	}
	primary, err := build(cfg.PrimaryModel)
	if err != nil {
		return generationSetup{}, fmt.Errorf("primary model init failed: %w", err)
	}
	setup := generationSetup{primary: primary, resolvedProvider: "mock"}
	if _, ok := primary.(*llm.OpenAIModel); ok {
		setup.resolvedProvider = "openai"
	}
	// A secondary identical to the primary would only repeat the same failure.
	if cfg.SecondaryModel != "" && cfg.SecondaryModel != cfg.PrimaryModel {
		secondary, err := build(cfg.SecondaryModel)
		if err != nil {
			return generationSetup{}, fmt.Errorf("secondary model init failed: %w", err)
		}
		setup.secondary = secondary
	}
	return setup, nil
}

// loadPassages layers the configured overrides over the built-in library.
func loadPassages(cfg config.Config) (*story.Passages, error) {
	overrides := map[string]string{}
	if raw := strings.TrimSpace(cfg.StaticPassages); raw != "" {
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return nil, fmt.Errorf("static passages: %w", err)
		}
	}
	return story.NewPassages(overrides, cfg.StaticFallbackPassage), nil
}
