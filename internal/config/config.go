package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the storyteller service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"storyteller"`
	LogLevel         string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"APP_LOG_FORMAT" envDefault:"json"`

	// AllowedOrigins feeds CORS. Websocket upgrades from other origins are
	// refused unless AllowAnyOrigin is set.
	AllowedOrigins []string `env:"APP_ALLOWED_ORIGINS" envSeparator:","`
	AllowAnyOrigin bool     `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`

	GenerationProvider string        `env:"GENERATION_PROVIDER" envDefault:"auto"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL"`
	PrimaryModel       string        `env:"OPENAI_PRIMARY_MODEL" envDefault:"gpt-4"`
	SecondaryModel     string        `env:"OPENAI_SECONDARY_MODEL" envDefault:"gpt-3.5-turbo"`
	Temperature        float32       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	MaxTokens          int           `env:"LLM_MAX_TOKENS" envDefault:"400"`
	LLMCallTimeout     time.Duration `env:"LLM_CALL_TIMEOUT" envDefault:"15s"`

	VoiceProvider          string        `env:"VOICE_PROVIDER" envDefault:"auto"`
	ElevenLabsAPIKey       string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL      string        `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
	ElevenLabsTTSModel     string        `env:"ELEVENLABS_TTS_MODEL_ID" envDefault:"eleven_monolingual_v1"`
	ElevenLabsTTSVoice     string        `env:"ELEVENLABS_TTS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsOutputFormat string        `env:"ELEVENLABS_OUTPUT_FORMAT" envDefault:"mp3_44100_128"`
	TTSStability           float64       `env:"TTS_STABILITY" envDefault:"0.5"`
	TTSSimilarityBoost     float64       `env:"TTS_SIMILARITY_BOOST" envDefault:"0.75"`
	TTSCallTimeout         time.Duration `env:"TTS_CALL_TIMEOUT" envDefault:"15s"`
	VoiceCacheTTL          time.Duration `env:"VOICE_CACHE_TTL" envDefault:"10m"`
	VoiceLanguages         []string      `env:"VOICE_LANGUAGES" envSeparator:"," envDefault:"en,es,fr"`
	NarrationMode          string        `env:"NARRATION_MODE" envDefault:"stream"`
	NarrationValidateVoice bool          `env:"NARRATION_VALIDATE_VOICE" envDefault:"true"`

	// StaticPassages holds the contents of a JSON file mapping "lang/level"
	// keys to passages that replace or extend the built-in static tier.
	StaticPassages        string `env:"STATIC_PASSAGES_FILE,file"`
	StaticFallbackPassage string `env:"STATIC_FALLBACK_PASSAGE"`

	DatabaseURL      string `env:"DATABASE_URL"`
	JournalRedactPII bool   `env:"JOURNAL_REDACT_PII" envDefault:"true"`
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.GenerationProvider = strings.ToLower(strings.TrimSpace(c.GenerationProvider))
	c.VoiceProvider = strings.ToLower(strings.TrimSpace(c.VoiceProvider))
	c.NarrationMode = strings.ToLower(strings.TrimSpace(c.NarrationMode))
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.ElevenLabsAPIKey = strings.TrimSpace(c.ElevenLabsAPIKey)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.AllowedOrigins = trimAll(c.AllowedOrigins)
	c.VoiceLanguages = trimAll(c.VoiceLanguages)
}

func (c Config) Validate() error {
	switch c.GenerationProvider {
	case "auto", "openai", "mock":
	default:
		return fmt.Errorf("GENERATION_PROVIDER must be one of auto, openai, mock (got %q)", c.GenerationProvider)
	}
	switch c.VoiceProvider {
	case "auto", "elevenlabs", "mock":
	default:
		return fmt.Errorf("VOICE_PROVIDER must be one of auto, elevenlabs, mock (got %q)", c.VoiceProvider)
	}
	switch c.NarrationMode {
	case "stream", "buffered":
	default:
		return fmt.Errorf("NARRATION_MODE must be stream or buffered (got %q)", c.NarrationMode)
	}
	if c.GenerationProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when GENERATION_PROVIDER=openai")
	}
	if c.VoiceProvider == "elevenlabs" && c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required when VOICE_PROVIDER=elevenlabs")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0,2]")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMCallTimeout <= 0 {
		return fmt.Errorf("LLM_CALL_TIMEOUT must be positive")
	}
	if c.TTSCallTimeout <= 0 {
		return fmt.Errorf("TTS_CALL_TIMEOUT must be positive")
	}
	if c.TTSStability < 0 || c.TTSStability > 1 {
		return fmt.Errorf("TTS_STABILITY must be within [0,1]")
	}
	if c.TTSSimilarityBoost < 0 || c.TTSSimilarityBoost > 1 {
		return fmt.Errorf("TTS_SIMILARITY_BOOST must be within [0,1]")
	}
	if c.VoiceCacheTTL < 0 {
		return fmt.Errorf("VOICE_CACHE_TTL must be >= 0")
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be at least 1s")
	}
	return nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
