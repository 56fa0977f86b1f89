package voice

import (
	"bytes"
	"context"
	"io"
	"strings"
)

// mockFrameHeader makes mock output look like an ID3-tagged MPEG stream.
var mockFrameHeader = []byte{0x49, 0x44, 0x33}

// MockProvider is a local fallback used when ElevenLabs is not configured.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) ListVoices(_ context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "mock-en-1", Name: "Rachel (mock)", LanguageTag: "en", Category: "premade", Labels: map[string]string{"accent": "american"}},
		{ID: "mock-en-2", Name: "George (mock)", LanguageTag: "en", Category: "premade", Labels: map[string]string{"accent": "british"}},
		{ID: "mock-es-1", Name: "Lucía (mock)", LanguageTag: "es", Category: "premade", Labels: map[string]string{"accent": "castilian"}},
		{ID: "mock-fr-1", Name: "Amélie (mock)", LanguageTag: "fr", Category: "premade", Labels: map[string]string{"accent": "parisian"}},
		{ID: "mock-de-1", Name: "Jonas (mock)", LanguageTag: "de", Category: "premade", Labels: map[string]string{"accent": "standard"}},
	}, nil
}

func (p *MockProvider) Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var buf bytes.Buffer
	buf.Write(mockFrameHeader)
	buf.WriteString(strings.TrimSpace(req.Text))
	return io.NopCloser(&buf), nil
}
