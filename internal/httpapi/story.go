package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/prompt"
	"github.com/ent0n29/storyteller/internal/session"
	"github.com/ent0n29/storyteller/internal/story"
)

type generateRequest struct {
	Prompt    string         `json:"prompt"`
	SessionID string         `json:"sessionId"`
	Messages  []session.Turn `json:"messages"`
	UserName  string         `json:"userName"`
	Language  string         `json:"language"`
	Level     string         `json:"level"`
	Module    string         `json:"module"`
}

type generateResponse struct {
	Text string `json:"text"`
	Tier string `json:"tier,omitempty"`
	// Story repeats Text for clients of the original /generate-story route.
	Story string `json:"story,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, false)
}

func (s *Server) handleGenerateLegacy(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, true)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, legacy bool) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := session.ValidateTurns(req.Messages); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_messages", err.Error())
		return
	}

	res, err := s.deps.Generator.Generate(r.Context(), story.Request{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
		Messages:  req.Messages,
		Identity: prompt.Identity{
			UserName: req.UserName,
			Language: req.Language,
			Level:    req.Level,
			Module:   req.Module,
		},
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		code := "generation_failed"
		if errors.Is(err, story.ErrAllTiersFailed) {
			code = "all_tiers_failed"
		}
		s.logger.Error("story generation failed", zap.String("session_id", req.SessionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, code, err.Error())
		return
	}

	w.Header().Set("X-Story-Tier", string(res.Tier))
	out := generateResponse{Text: res.Text, Tier: string(res.Tier)}
	if legacy {
		out.Story = res.Text
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"topics": prompt.Topics()})
}

func (s *Server) handleRecentStories(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		respondJSON(w, http.StatusOK, map[string]any{"entries": []any{}})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, 200)
	}
	entries, err := s.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
