package app

import (
	"fmt"

	"github.com/ent0n29/storyteller/internal/config"
	"github.com/ent0n29/storyteller/internal/voice"
)

type voiceSetup struct {
	provider         voice.Provider
	resolvedProvider string
	defaultVoiceID   string
	defaultModelID   string
	detail           string
}

func resolveVoiceProvider(cfg config.Config) (voiceSetup, error) {
	elevenLabs := func() voiceSetup {
		p := voice.NewElevenLabsProvider(voice.ElevenLabsConfig{
			APIKey:              cfg.ElevenLabsAPIKey,
			BaseURL:             cfg.ElevenLabsBaseURL,
			DefaultModelID:      cfg.ElevenLabsTTSModel,
			DefaultOutputFormat: cfg.ElevenLabsOutputFormat,
			Timeout:             cfg.TTSCallTimeout,
		})
		return voiceSetup{
			provider:         p,
			resolvedProvider: "elevenlabs",
			defaultVoiceID:   cfg.ElevenLabsTTSVoice,
			defaultModelID:   cfg.ElevenLabsTTSModel,
			detail:           fmt.Sprintf("elevenlabs (%s, %s)", cfg.ElevenLabsTTSModel, cfg.ElevenLabsOutputFormat),
		}
	}
	mock := func(detail string) voiceSetup {
		return voiceSetup{
			provider:         voice.NewMockProvider(),
			resolvedProvider: "mock",
			defaultVoiceID:   "mock-en-1",
			defaultModelID:   "mock",
			detail:           detail,
		}
	}

	switch cfg.VoiceProvider {
	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return voiceSetup{}, fmt.Errorf("VOICE_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
		}
		return elevenLabs(), nil
	case "mock":
		return mock("mock"), nil
	case "", "auto":
		if cfg.ElevenLabsAPIKey != "" {
			return elevenLabs(), nil
		}
		return mock("mock (no elevenlabs key)"), nil
	default:
		return voiceSetup{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected auto|elevenlabs|mock)", cfg.VoiceProvider)
	}
}
