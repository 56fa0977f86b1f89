// Package narration relays synthesized audio from the TTS provider to the
// caller, either buffered with a known length or streamed as it arrives.
package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/observability"
	"github.com/ent0n29/storyteller/internal/voice"
)

const ContentType = "audio/mpeg"

type Mode string

const (
	ModeBuffered  Mode = "buffered"
	ModeStream    Mode = "stream"
	ModeWebsocket Mode = "websocket"
)

// ParseMode accepts "buffered" or "stream" ("chunked" is an alias).
func ParseMode(v string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buffered":
		return ModeBuffered, true
	case "stream", "chunked":
		return ModeStream, true
	default:
		return "", false
	}
}

var (
	ErrMissingField    = errors.New("missing field")
	ErrUnknownVoice    = errors.New("unknown voice")
	ErrNarrationFailed = errors.New("narration failed")
	// ErrStreamInterrupted means audio was already on the wire when the
	// provider failed. The response cannot be turned into an error payload.
	ErrStreamInterrupted = errors.New("narration stream interrupted")
)

type Request struct {
	Text     string                  `json:"text"`
	VoiceID  string                  `json:"voiceId"`
	Settings *voice.SettingsOverride `json:"voiceSettings,omitempty"`
}

type Config struct {
	ModelID      string
	OutputFormat string
	Defaults     voice.Settings
	// ValidateVoice rejects voice ids missing from the catalog. A catalog
	// that cannot be fetched skips the check.
	ValidateVoice bool
	ChunkSize     int
}

// VoiceLookup is the slice of the catalog the proxy needs.
type VoiceLookup interface {
	Lookup(ctx context.Context, id string) (voice.Voice, bool, error)
}

type Proxy struct {
	provider voice.Provider
	catalog  VoiceLookup
	cfg      Config
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewProxy(provider voice.Provider, catalog VoiceLookup, cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Proxy {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 16 << 10
	}
	if cfg.Defaults == (voice.Settings{}) {
		cfg.Defaults = voice.Settings{Stability: 0.5, SimilarityBoost: 0.75}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{provider: provider, catalog: catalog, cfg: cfg, metrics: metrics, logger: logger}
}

// Open validates req and starts exactly one synthesis call. The caller owns
// the returned body.
func (p *Proxy) Open(ctx context.Context, req Request) (io.ReadCloser, error) {
	text := SpeakableText(req.Text)
	voiceID := strings.TrimSpace(req.VoiceID)
	switch {
	case strings.TrimSpace(req.Text) == "":
		return nil, fmt.Errorf("%w: text", ErrMissingField)
	case voiceID == "":
		return nil, fmt.Errorf("%w: voiceId", ErrMissingField)
	case text == "":
		return nil, fmt.Errorf("%w: text has nothing speakable", ErrMissingField)
	}

	if p.cfg.ValidateVoice && p.catalog != nil {
		_, ok, err := p.catalog.Lookup(ctx, voiceID)
		switch {
		case err != nil:
			p.logger.Debug("voice validation skipped", zap.String("voice_id", voiceID), zap.Error(err))
		case !ok:
			return nil, fmt.Errorf("%w: %s", ErrUnknownVoice, voiceID)
		}
	}

	started := time.Now()
	body, err := p.provider.Synthesize(ctx, voice.SynthesisRequest{
		Text:         text,
		VoiceID:      voiceID,
		ModelID:      p.cfg.ModelID,
		OutputFormat: p.cfg.OutputFormat,
		Settings:     req.Settings.Resolve(p.cfg.Defaults),
	})
	if p.metrics != nil {
		p.metrics.ObserveProviderCall("tts", "synthesize", time.Since(started))
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.ProviderErrors.WithLabelValues("tts", voice.ErrorCode(err)).Inc()
		}
		return nil, fmt.Errorf("%w: %w", ErrNarrationFailed, err)
	}
	return body, nil
}

// Relay writes the narration for req to w. Errors returned before anything
// was written leave w untouched so the caller can send an error payload.
// ErrStreamInterrupted is the only error returned after headers went out.
func (p *Proxy) Relay(ctx context.Context, w http.ResponseWriter, req Request, mode Mode) (int64, error) {
	body, err := p.Open(ctx, req)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	logger := p.logger.With(zap.String("voice_id", req.VoiceID), zap.String("mode", string(mode)))
	var n int64
	switch mode {
	case ModeBuffered:
		n, err = p.relayBuffered(w, body)
	default:
		mode = ModeStream
		n, err = p.relayStream(w, body)
	}
	if p.metrics != nil && n > 0 {
		p.metrics.NarrationBytes.WithLabelValues(string(mode)).Add(float64(n))
	}
	if err != nil {
		logger.Warn("narration relay failed", zap.Int64("bytes", n), zap.Error(err))
		return n, err
	}
	logger.Debug("narration relayed", zap.Int64("bytes", n))
	return n, nil
}

func (p *Proxy) relayBuffered(w http.ResponseWriter, body io.Reader) (int64, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return 0, fmt.Errorf("%w: read audio: %w", ErrNarrationFailed, err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: provider returned no audio", ErrNarrationFailed)
	}
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(data)
	return int64(n), err
}

// relayStream holds headers back until the first chunk arrives, so a
// provider that fails immediately still yields a clean error response.
func (p *Proxy) relayStream(w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, p.cfg.ChunkSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if written == 0 {
				w.Header().Set("Content-Type", ContentType)
				w.Header().Del("Content-Length")
				w.WriteHeader(http.StatusOK)
			}
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, fmt.Errorf("%w: write: %w", ErrStreamInterrupted, err)
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, fmt.Errorf("%w: flush: %w", ErrStreamInterrupted, err)
			}
		}
		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF):
			if written == 0 {
				return 0, fmt.Errorf("%w: provider returned no audio", ErrNarrationFailed)
			}
			return written, nil
		case written == 0:
			return 0, fmt.Errorf("%w: read audio: %w", ErrNarrationFailed, readErr)
		default:
			return written, fmt.Errorf("%w: %w", ErrStreamInterrupted, readErr)
		}
	}
}
