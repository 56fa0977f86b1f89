package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/storyteller/internal/session"
)

func TestOpenAIModelComplete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hola"},"finish_reason":"stop"}]}`)
	}))
	defer ts.Close()

	m := NewOpenAIModel("sk-test", ts.URL+"/v1", "gpt-4")
	text, err := m.Complete(context.Background(), []session.Turn{
		{Role: session.RoleSystem, Content: "sys"},
		{Role: session.RoleUser, Content: "What is AI?"},
	}, Params{Temperature: 0.7, MaxTokens: 400})
	require.NoError(t, err)
	assert.Equal(t, "Hola", text)

	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, 400, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "What is AI?", got.Messages[1].Content)
}

func TestOpenAIModelProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer ts.Close()

	m := NewOpenAIModel("sk-test", ts.URL+"/v1", "gpt-4")
	_, err := m.Complete(context.Background(), []session.Turn{{Role: session.RoleUser, Content: "x"}}, Params{})
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatusCode)
}

func TestOpenAIModelNoChoicesIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer ts.Close()

	text, err := NewOpenAIModel("k", ts.URL+"/v1", "gpt-4").Complete(context.Background(), nil, Params{})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestNewModelModes(t *testing.T) {
	m, err := NewModel(Config{Provider: "auto", Model: "gpt-4"})
	require.NoError(t, err)
	assert.IsType(t, &MockModel{}, m)

	m, err = NewModel(Config{Provider: "auto", APIKey: "k", Model: "gpt-4"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, m)
	assert.Equal(t, "gpt-4", m.Name())

	_, err = NewModel(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewModel(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestMockModelEchoesLastUserTurn(t *testing.T) {
	text, err := NewMockModel("gpt-4").Complete(context.Background(), []session.Turn{
		{Role: session.RoleUser, Content: "robots"},
	}, Params{})
	require.NoError(t, err)
	assert.Contains(t, text, "robots")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMockModel("").Complete(ctx, nil, Params{})
	assert.ErrorIs(t, err, context.Canceled)
}
