package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/config"
	"github.com/ent0n29/storyteller/internal/httpapi"
	"github.com/ent0n29/storyteller/internal/journal"
	"github.com/ent0n29/storyteller/internal/llm"
	"github.com/ent0n29/storyteller/internal/narration"
	"github.com/ent0n29/storyteller/internal/observability"
	"github.com/ent0n29/storyteller/internal/prompt"
	"github.com/ent0n29/storyteller/internal/session"
	"github.com/ent0n29/storyteller/internal/story"
	"github.com/ent0n29/storyteller/internal/voice"
)

type ProviderInfo struct {
	Generation     string
	Voice          string
	VoiceDetail    string
	DefaultVoiceID string
	DefaultModelID string
}

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Generator *story.Generator
	Catalog   *voice.Catalog
	Narrator  *narration.Proxy
	Journal   journal.Store
	Metrics   *observability.Metrics
	Providers ProviderInfo

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	journalStore, err := journal.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("journal store init failed: %w", err)
	}

	gen, err := resolveGenerationModels(cfg)
	if err != nil {
		_ = journalStore.Close()
		return nil, err
	}
	passages, err := loadPassages(cfg)
	if err != nil {
		_ = journalStore.Close()
		return nil, err
	}
	vs, err := resolveVoiceProvider(cfg)
	if err != nil {
		_ = journalStore.Close()
		return nil, err
	}
	logger.Info("providers resolved",
		zap.String("generation", gen.resolvedProvider),
		zap.String("voice", vs.detail),
	)

	// Ensure API handlers report a default voice the active provider knows.
	cfg.ElevenLabsTTSVoice = vs.defaultVoiceID
	cfg.VoiceProvider = vs.resolvedProvider

	sessions := session.NewManager()
	sessions.SetSaveHook(func(_ string, _ int) {
		metrics.StoredSessions.Set(float64(sessions.Count()))
	})

	generator := story.NewGenerator(gen.primary, gen.secondary, sessions,
		story.Config{
			Params:        llm.Params{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
			CallTimeout:   cfg.LLMCallTimeout,
			RedactJournal: cfg.JournalRedactPII,
		},
		story.WithComposer(prompt.NewComposer(time.Now)),
		story.WithPassages(passages),
		story.WithJournal(journalStore),
		story.WithMetrics(metrics),
		story.WithLogger(logger.Named("story")),
	)

	catalog := voice.NewCatalog(vs.provider, voice.CatalogConfig{
		TTL:          cfg.VoiceCacheTTL,
		Languages:    cfg.VoiceLanguages,
		FetchTimeout: cfg.TTSCallTimeout,
	}, metrics, logger.Named("voices"))

	narrator := narration.NewProxy(vs.provider, catalog, narration.Config{
		ModelID:       vs.defaultModelID,
		OutputFormat:  cfg.ElevenLabsOutputFormat,
		Defaults:      voice.Settings{Stability: cfg.TTSStability, SimilarityBoost: cfg.TTSSimilarityBoost},
		ValidateVoice: cfg.NarrationValidateVoice,
	}, metrics, logger.Named("narration"))

	api := httpapi.New(cfg, httpapi.Deps{
		Sessions:           sessions,
		Generator:          generator,
		Narrator:           narrator,
		Catalog:            catalog,
		Journal:            journalStore,
		Metrics:            metrics,
		Logger:             logger.Named("http"),
		GenerationProvider: gen.resolvedProvider,
		VoiceProvider:      vs.resolvedProvider,
	})

	cleanup := func() error {
		var errs []error
		if err := journalStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Generator: generator,
		Catalog:   catalog,
		Narrator:  narrator,
		Journal:   journalStore,
		Metrics:   metrics,
		Providers: ProviderInfo{
			Generation:     gen.resolvedProvider,
			Voice:          vs.resolvedProvider,
			VoiceDetail:    vs.detail,
			DefaultVoiceID: vs.defaultVoiceID,
			DefaultModelID: vs.defaultModelID,
		},
		Cleanup: cleanup,
	}, nil
}
