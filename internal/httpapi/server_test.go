package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/storyteller/internal/config"
	"github.com/ent0n29/storyteller/internal/journal"
	"github.com/ent0n29/storyteller/internal/llm"
	"github.com/ent0n29/storyteller/internal/narration"
	"github.com/ent0n29/storyteller/internal/observability"
	"github.com/ent0n29/storyteller/internal/session"
	"github.com/ent0n29/storyteller/internal/story"
	"github.com/ent0n29/storyteller/internal/voice"
)

type scriptedModel struct {
	text string
	err  error
}

func (m scriptedModel) Name() string { return "scripted" }

func (m scriptedModel) Complete(context.Context, []session.Turn, llm.Params) (string, error) {
	return m.text, m.err
}

type stubTTS struct {
	audio     []byte
	listErr   error
	mu        sync.Mutex
	synthCall int
	listCall  int
}

func (p *stubTTS) ListVoices(context.Context) ([]voice.Voice, error) {
	p.mu.Lock()
	p.listCall++
	p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return []voice.Voice{
		{ID: "v1", Name: "Amélie", LanguageTag: "fr"},
		{ID: "v2", Name: "Rachel", LanguageTag: "en"},
		{ID: "v3", Name: "Lucía", Labels: map[string]string{"language": "Spanish"}},
		{ID: "v4", Name: "Jonas", LanguageTag: "de"},
	}, nil
}

func (p *stubTTS) Synthesize(context.Context, voice.SynthesisRequest) (io.ReadCloser, error) {
	p.mu.Lock()
	p.synthCall++
	p.mu.Unlock()
	return io.NopCloser(bytes.NewReader(p.audio)), nil
}

func (p *stubTTS) synthCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synthCall
}

type testEnv struct {
	ts       *httptest.Server
	sessions *session.Manager
	tts      *stubTTS
	journal  *journal.InMemoryStore
}

func newTestEnv(t *testing.T, primary, secondary llm.Model) *testEnv {
	t.Helper()
	cfg := config.Config{NarrationMode: "stream", ElevenLabsTTSVoice: "v1"}
	metrics := observability.NewMetrics("test_httpapi")
	sessions := session.NewManager()
	tts := &stubTTS{audio: []byte{0x49, 0xD3}}
	catalog := voice.NewCatalog(tts, voice.CatalogConfig{TTL: time.Minute, Languages: []string{"en", "es", "fr"}}, metrics, nil)
	j := journal.NewInMemoryStore(10)

	srv := New(cfg, Deps{
		Sessions:  sessions,
		Generator: story.NewGenerator(primary, secondary, sessions, story.Config{CallTimeout: time.Second}, story.WithJournal(j)),
		Narrator:  narration.NewProxy(tts, catalog, narration.Config{ValidateVoice: true}, metrics, nil),
		Catalog:   catalog,
		Journal:   j,
		Metrics:   metrics,

		GenerationProvider: "scripted",
		VoiceProvider:      "stub",
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, sessions: sessions, tts: tts, journal: j}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, _ := json.Marshal(body)
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGenerateThenLoadSession(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "Hola Ana, érase una vez una máquina curiosa."}, nil)

	res := postJSON(t, env.ts.URL+"/v1/story/generate", map[string]string{
		"prompt":    "What is AI?",
		"sessionId": "s1",
		"userName":  "Ana",
		"language":  "Spanish",
		"level":     "beginner",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var gen generateResponse
	decodeBody(t, res, &gen)
	if gen.Text == "" {
		t.Fatalf("generate text is empty")
	}

	loadRes, err := http.Get(env.ts.URL + "/v1/session/load?sessionId=s1")
	if err != nil {
		t.Fatalf("load error = %v", err)
	}
	var loaded struct {
		Messages []session.Turn `json:"messages"`
	}
	decodeBody(t, loadRes, &loaded)
	if len(loaded.Messages) == 0 {
		t.Fatalf("loaded no messages")
	}
	last := loaded.Messages[len(loaded.Messages)-1]
	if last.Role != session.RoleAssistant || last.Content != gen.Text {
		t.Fatalf("last turn = %+v, want assistant %q", last, gen.Text)
	}
}

func TestGenerateFallsBackToSecondary(t *testing.T) {
	env := newTestEnv(t, scriptedModel{err: errors.New("boom")}, scriptedModel{text: "Hola"})

	var gen generateResponse
	decodeBody(t, postJSON(t, env.ts.URL+"/v1/story/generate", map[string]string{"prompt": "hi"}), &gen)
	if gen.Text != "Hola" || gen.Tier != string(story.TierSecondary) {
		t.Fatalf("response = %+v, want Hola from secondary", gen)
	}
}

func TestGenerateStaticFrenchBeginner(t *testing.T) {
	env := newTestEnv(t, scriptedModel{err: errors.New("down")}, scriptedModel{err: errors.New("down")})

	var gen generateResponse
	decodeBody(t, postJSON(t, env.ts.URL+"/v1/story/generate", map[string]string{
		"prompt": "hi", "language": "fr", "level": "beginner",
	}), &gen)
	want := story.DefaultPassages().Select("fr", "beginner")
	if gen.Text != want {
		t.Fatalf("text = %q, want %q", gen.Text, want)
	}
}

func TestGenerateLegacyRoute(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "A tale"}, nil)

	var out map[string]string
	decodeBody(t, postJSON(t, env.ts.URL+"/generate-story", map[string]string{"prompt": "x"}), &out)
	if out["story"] != "A tale" || out["text"] != "A tale" {
		t.Fatalf("legacy response = %+v", out)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)

	res, err := http.Post(env.ts.URL+"/v1/story/generate", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	res = postJSON(t, env.ts.URL+"/v1/story/generate", map[string]any{
		"prompt":   "x",
		"messages": []map[string]string{{"role": "narrator", "content": "?"}},
	})
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	msgs := []session.Turn{
		{Role: session.RoleUser, Content: "hello"},
		{Role: session.RoleAssistant, Content: "hi there"},
	}

	res := postJSON(t, env.ts.URL+"/v1/session/save", map[string]any{"sessionId": "abc", "messages": msgs})
	var saved map[string]bool
	decodeBody(t, res, &saved)
	if res.StatusCode != http.StatusOK || !saved["success"] {
		t.Fatalf("save status = %d body = %+v", res.StatusCode, saved)
	}

	loadRes, err := http.Get(env.ts.URL + "/v1/session/load?sessionId=abc")
	if err != nil {
		t.Fatalf("load error = %v", err)
	}
	var loaded struct {
		Messages []session.Turn `json:"messages"`
	}
	decodeBody(t, loadRes, &loaded)
	if len(loaded.Messages) != 2 || loaded.Messages[1] != msgs[1] {
		t.Fatalf("loaded = %+v, want %+v", loaded.Messages, msgs)
	}

	unknownRes, err := http.Get(env.ts.URL + "/v1/session/load?sessionId=nobody")
	if err != nil {
		t.Fatalf("load unknown error = %v", err)
	}
	if unknownRes.StatusCode != http.StatusOK {
		t.Fatalf("load unknown status = %d, want 200", unknownRes.StatusCode)
	}
	var raw map[string]json.RawMessage
	decodeBody(t, unknownRes, &raw)
	if string(raw["messages"]) != "[]" {
		t.Fatalf("unknown messages = %s, want []", raw["messages"])
	}
}

func TestSaveSessionRejectsInvalid(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	cases := []any{
		map[string]any{"messages": []any{}},
		map[string]any{"sessionId": "abc"},
		map[string]any{"sessionId": "abc", "messages": "not a list"},
	}
	for _, body := range cases {
		res := postJSON(t, env.ts.URL+"/v1/session/save", body)
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("save(%v) status = %d, want 400", body, res.StatusCode)
		}
	}
}

func TestNarrateRelaysAudio(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)

	for _, path := range []string{"/v1/narrate", "/stream-voice", "/v1/narrate?mode=buffered"} {
		res := postJSON(t, env.ts.URL+path, map[string]string{"text": "Bonjour", "voiceId": "v1"})
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d, want 200 (%s)", path, res.StatusCode, body)
		}
		if ct := res.Header.Get("Content-Type"); ct != "audio/mpeg" {
			t.Fatalf("%s content-type = %q, want audio/mpeg", path, ct)
		}
		if !bytes.Equal(body, []byte{0x49, 0xD3}) {
			t.Fatalf("%s body = %x, want 49d3", path, body)
		}
	}
}

func TestNarrateBufferedHasLength(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	res := postJSON(t, env.ts.URL+"/v1/narrate?mode=buffered", map[string]string{"text": "Bonjour", "voiceId": "v1"})
	defer res.Body.Close()
	if res.ContentLength != 2 {
		t.Fatalf("ContentLength = %d, want 2", res.ContentLength)
	}
}

func TestNarrateClientErrors(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	cases := []struct {
		path string
		body map[string]string
		code string
	}{
		{"/v1/narrate", map[string]string{"text": "Bonjour"}, "missing_field"},
		{"/v1/narrate", map[string]string{"voiceId": "v1"}, "missing_field"},
		{"/v1/narrate", map[string]string{"text": "Bonjour", "voiceId": "v4"}, "unknown_voice"},
		{"/v1/narrate?mode=telepathy", map[string]string{"text": "Bonjour", "voiceId": "v1"}, "invalid_mode"},
	}
	for _, tc := range cases {
		res := postJSON(t, env.ts.URL+tc.path, tc.body)
		var out errorResponse
		decodeBody(t, res, &out)
		if res.StatusCode != http.StatusBadRequest || out.Code != tc.code {
			t.Fatalf("%s %v: status = %d code = %q, want 400 %q", tc.path, tc.body, res.StatusCode, out.Code, tc.code)
		}
	}
	if got := env.tts.synthCalls(); got != 0 {
		t.Fatalf("provider calls = %d, want 0", got)
	}
}

func TestNarrateBodyDecoding(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	cases := []struct {
		body string
		code string
	}{
		{``, "missing_field"},
		{`{"text":"Bonjour","voiceId":"v1"`, "invalid_request"},
		{`{"text":"Bon`, "invalid_request"},
	}
	for _, tc := range cases {
		res, err := http.Post(env.ts.URL+"/v1/narrate", "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		var out errorResponse
		decodeBody(t, res, &out)
		if res.StatusCode != http.StatusBadRequest || out.Code != tc.code {
			t.Fatalf("body %q: status = %d code = %q, want 400 %q", tc.body, res.StatusCode, out.Code, tc.code)
		}
	}
	if got := env.tts.synthCalls(); got != 0 {
		t.Fatalf("provider calls = %d, want 0", got)
	}
}

func TestListTopics(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	res, err := http.Get(env.ts.URL + "/v1/story/topics")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	var out struct {
		Topics []string `json:"topics"`
	}
	decodeBody(t, res, &out)
	if !slices.Contains(out.Topics, "machine-learning") || !slices.IsSorted(out.Topics) {
		t.Fatalf("topics = %v", out.Topics)
	}
}

func TestListVoices(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)

	var all listVoicesResponse
	res, err := http.Get(env.ts.URL + "/v1/voices")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	decodeBody(t, res, &all)
	if len(all.Voices) != 3 {
		t.Fatalf("len(voices) = %d, want 3 (german voice filtered out)", len(all.Voices))
	}
	if all.DefaultVoiceID != "v1" {
		t.Fatalf("DefaultVoiceID = %q, want v1", all.DefaultVoiceID)
	}

	var spanish listVoicesResponse
	res, err = http.Get(env.ts.URL + "/v1/voices?language=es")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	decodeBody(t, res, &spanish)
	if len(spanish.Voices) != 1 || spanish.Voices[0].ID != "v3" {
		t.Fatalf("spanish voices = %+v, want [v3]", spanish.Voices)
	}
	if env.tts.listCall != 1 {
		t.Fatalf("provider list calls = %d, want 1", env.tts.listCall)
	}
}

func TestListVoicesFetchFailure(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	env.tts.listErr = errors.New("unreachable")

	res, err := http.Get(env.ts.URL + "/v1/voices")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	var out errorResponse
	decodeBody(t, res, &out)
	if res.StatusCode != http.StatusInternalServerError || out.Code != "voice_fetch_failed" {
		t.Fatalf("status = %d code = %q, want 500 voice_fetch_failed", res.StatusCode, out.Code)
	}
}

func TestRecentStories(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "first"}, nil)
	postJSON(t, env.ts.URL+"/v1/story/generate", map[string]string{"prompt": "a"}).Body.Close()

	res, err := http.Get(env.ts.URL + "/v1/story/recent?limit=5")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	var out struct {
		Entries []journal.Entry `json:"entries"`
	}
	decodeBody(t, res, &out)
	if len(out.Entries) != 1 || out.Entries[0].Text != "first" {
		t.Fatalf("entries = %+v", out.Entries)
	}

	bad, err := http.Get(env.ts.URL + "/v1/story/recent?limit=zero")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", bad.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/perf/latency"} {
		res, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, res.StatusCode)
		}
	}
}

func TestNarrateWebsocket(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.ts.URL, "http")+"/v1/narrate/ws", nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(narration.Request{Text: "Bonjour", VoiceID: "v1"}); err != nil {
		t.Fatalf("write error = %v", err)
	}
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if msgType != websocket.BinaryMessage || !bytes.Equal(data, []byte{0x49, 0xD3}) {
		t.Fatalf("frame = %d %x, want binary 49d3", msgType, data)
	}
	var end narration.Event
	if err := conn.ReadJSON(&end); err != nil {
		t.Fatalf("read end error = %v", err)
	}
	if end.Type != narration.EventNarrationEnd || end.Bytes != 2 {
		t.Fatalf("end = %+v", end)
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, scriptedModel{text: "ok"}, nil)
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.ts.URL, "http")+"/v1/narrate/ws", header)
	if err == nil {
		t.Fatalf("dial succeeded, want origin rejection")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v, want 403", res)
	}
}
