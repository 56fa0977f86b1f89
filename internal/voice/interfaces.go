package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ent0n29/storyteller/internal/reliability"
)

// Voice is a narrator persona exposed by the TTS provider.
type Voice struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	LanguageTag string            `json:"languageTag"`
	Category    string            `json:"category,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Settings are the voice-quality knobs, each in [0,1].
type Settings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Clamp bounds both knobs to [0,1].
func (s Settings) Clamp() Settings {
	s.Stability = clamp01(s.Stability)
	s.SimilarityBoost = clamp01(s.SimilarityBoost)
	return s
}

// SettingsOverride is the client-supplied subset of Settings. Absent fields
// keep the deployment default; an explicit 0 is honoured.
type SettingsOverride struct {
	Stability       *float64 `json:"stability,omitempty"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty"`
}

// Resolve layers o over defaults and clamps the result.
func (o *SettingsOverride) Resolve(defaults Settings) Settings {
	s := defaults
	if o != nil {
		if o.Stability != nil {
			s.Stability = *o.Stability
		}
		if o.SimilarityBoost != nil {
			s.SimilarityBoost = *o.SimilarityBoost
		}
	}
	return s.Clamp()
}

type SynthesisRequest struct {
	Text         string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Settings     Settings
}

// Provider is the text-to-speech backend. Synthesize returns the audio body
// as it arrives; callers must close it.
type Provider interface {
	ListVoices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error)
}

var ErrVoiceFetchFailed = errors.New("voice fetch failed")

// ProviderError carries an upstream non-2xx response.
type ProviderError struct {
	Provider string
	Op       string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s status %d: %s", e.Provider, e.Op, e.Status, strings.TrimSpace(e.Body))
}

// ErrorCode labels a provider error for metrics: the upstream status when
// there is one, otherwise the failure kind.
func ErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return strconv.Itoa(perr.Status)
	}
	return string(reliability.Classify(err))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
