package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ElevenLabsConfig struct {
	APIKey              string
	BaseURL             string
	DefaultModelID      string
	DefaultOutputFormat string
	// Timeout bounds each request up to response headers. Streaming bodies
	// are bounded by the caller's context instead.
	Timeout time.Duration
}

type ElevenLabsProvider struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if strings.TrimSpace(cfg.DefaultModelID) == "" {
		cfg.DefaultModelID = "eleven_monolingual_v1"
	}
	if strings.TrimSpace(cfg.DefaultOutputFormat) == "" {
		cfg.DefaultOutputFormat = "mp3_44100_128"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ElevenLabsProvider{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.Timeout,
				MaxIdleConnsPerHost:   8,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &ProviderError{Provider: "elevenlabs", Op: "list_voices", Status: res.StatusCode, Body: string(body)}
	}
	return parseVoices(body)
}

func parseVoices(body []byte) ([]Voice, error) {
	var parsed struct {
		Voices []struct {
			VoiceID          string            `json:"voice_id"`
			Name             string            `json:"name"`
			Category         string            `json:"category"`
			Labels           map[string]string `json:"labels"`
			VerifiedLanguage []struct {
				Language string `json:"language"`
				Locale   string `json:"locale"`
			} `json:"verified_languages"`
			FineTuning struct {
				Language string `json:"language"`
			} `json:"fine_tuning"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}

	out := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		item := Voice{
			ID:       strings.TrimSpace(v.VoiceID),
			Name:     strings.TrimSpace(v.Name),
			Category: strings.TrimSpace(v.Category),
			Labels:   v.Labels,
		}
		if item.ID == "" || item.Name == "" {
			continue
		}
		if item.Labels == nil {
			item.Labels = map[string]string{}
		}
		switch {
		case strings.TrimSpace(item.Labels["language"]) != "":
			item.LanguageTag = strings.TrimSpace(item.Labels["language"])
		case len(v.VerifiedLanguage) > 0:
			item.LanguageTag = strings.TrimSpace(v.VerifiedLanguage[0].Language)
		case strings.TrimSpace(v.FineTuning.Language) != "":
			item.LanguageTag = strings.TrimSpace(v.FineTuning.Language)
		}
		out = append(out, item)
	}
	return out, nil
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error) {
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, fmt.Errorf("voice_id is required")
	}
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		modelID = p.cfg.DefaultModelID
	}
	format := strings.TrimSpace(req.OutputFormat)
	if format == "" {
		format = p.cfg.DefaultOutputFormat
	}

	payload, err := json.Marshal(map[string]any{
		"text":     req.Text,
		"model_id": modelID,
		"voice_settings": map[string]any{
			"stability":        req.Settings.Stability,
			"similarity_boost": req.Settings.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u, err := url.Parse(p.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID) + "/stream")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("output_format", format)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	res, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &ProviderError{Provider: "elevenlabs", Op: "synthesize", Status: res.StatusCode, Body: string(body)}
	}
	return res.Body, nil
}
