package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/config"
	"github.com/ent0n29/storyteller/internal/journal"
	"github.com/ent0n29/storyteller/internal/narration"
	"github.com/ent0n29/storyteller/internal/observability"
	"github.com/ent0n29/storyteller/internal/session"
	"github.com/ent0n29/storyteller/internal/story"
	"github.com/ent0n29/storyteller/internal/voice"
)

type Generator interface {
	Generate(ctx context.Context, req story.Request) (story.Result, error)
}

type Narrator interface {
	Relay(ctx context.Context, w http.ResponseWriter, req narration.Request, mode narration.Mode) (int64, error)
	ServeConn(ctx context.Context, conn *websocket.Conn) error
}

type VoiceCatalog interface {
	Voices(ctx context.Context) ([]voice.Voice, error)
}

// Deps are the components the API serves. Sessions, Generator and Narrator
// are required; the rest may be nil.
type Deps struct {
	Sessions  *session.Manager
	Generator Generator
	Narrator  Narrator
	Catalog   VoiceCatalog
	Journal   journal.Store
	Metrics   *observability.Metrics
	Logger    *zap.Logger

	// Reported by /healthz and /readyz.
	GenerationProvider string
	VoiceProvider      string
}

type Server struct {
	cfg      config.Config
	deps     Deps
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16 << 10,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if strings.EqualFold(origin, allowed) {
						return true
					}
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/story/generate", s.handleGenerate)
	r.Get("/v1/story/recent", s.handleRecentStories)
	r.Get("/v1/story/topics", s.handleListTopics)
	r.Post("/v1/narrate", s.handleNarrate)
	r.Get("/v1/narrate/ws", s.handleNarrateWS)
	r.Get("/v1/voices", s.handleListVoices)
	r.Post("/v1/session/save", s.handleSaveSession)
	r.Get("/v1/session/load", s.handleLoadSession)

	r.Post("/generate-story", s.handleGenerateLegacy)
	r.Post("/stream-voice", s.handleStreamVoiceLegacy)

	return r
}

func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-Id", "X-Story-Tier"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if s.cfg.AllowAnyOrigin || len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return opts
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"generation_provider": s.deps.GenerationProvider,
		"voice_provider":      s.deps.VoiceProvider,
		"journal_enabled":     s.deps.Journal != nil,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Generator == nil || s.deps.Narrator == nil || s.deps.Sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service is still wiring providers")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ready",
		"generation_provider": s.deps.GenerationProvider,
		"voice_provider":      s.deps.VoiceProvider,
		"stored_sessions":     s.deps.Sessions.Count(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
