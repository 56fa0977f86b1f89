package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ent0n29/storyteller/internal/narration"
)

// handleNarrate relays audio for {text, voiceId}. ?mode=buffered|stream
// overrides the deployment default.
func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	mode, ok := narration.ParseMode(s.cfg.NarrationMode)
	if !ok {
		mode = narration.ModeStream
	}
	if raw := r.URL.Query().Get("mode"); raw != "" {
		if mode, ok = narration.ParseMode(raw); !ok {
			respondError(w, http.StatusBadRequest, "invalid_mode", "mode must be buffered or stream")
			return
		}
	}
	s.narrate(w, r, mode)
}

func (s *Server) handleStreamVoiceLegacy(w http.ResponseWriter, r *http.Request) {
	s.narrate(w, r, narration.ModeStream)
}

func (s *Server) narrate(w http.ResponseWriter, r *http.Request, mode narration.Mode) {
	var req narration.Request
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	_, err := s.deps.Narrator.Relay(r.Context(), w, req, mode)
	switch {
	case err == nil:
	case errors.Is(err, narration.ErrStreamInterrupted):
		// Audio is already on the wire; break the transfer so the client
		// cannot mistake a truncated body for a complete one.
		panic(http.ErrAbortHandler)
	case errors.Is(err, narration.ErrMissingField), errors.Is(err, narration.ErrUnknownVoice):
		respondError(w, http.StatusBadRequest, narration.ErrorCode(err), err.Error())
	default:
		if r.Context().Err() != nil {
			return
		}
		s.logger.Warn("narration failed", zap.String("voice_id", req.VoiceID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, narration.ErrorCode(err), err.Error())
	}
}

func (s *Server) handleNarrateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := s.deps.Narrator.ServeConn(r.Context(), conn); err != nil {
		s.logger.Debug("narration websocket closed", zap.Error(err))
	}
}
