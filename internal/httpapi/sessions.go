package httpapi

import (
	"net/http"
	"strings"

	"github.com/ent0n29/storyteller/internal/session"
)

type saveSessionRequest struct {
	SessionID string         `json:"sessionId"`
	Messages  []session.Turn `json:"messages"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.countSave("invalid")
		respondError(w, http.StatusBadRequest, "invalid_session_data", err.Error())
		return
	}
	if err := s.deps.Sessions.Save(req.SessionID, req.Messages); err != nil {
		s.countSave("invalid")
		respondError(w, http.StatusBadRequest, "invalid_session_data", err.Error())
		return
	}
	s.countSave("ok")
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": s.deps.Sessions.Load(id),
	})
}

func (s *Server) countSave(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionSaves.WithLabelValues(result).Inc()
	}
}
