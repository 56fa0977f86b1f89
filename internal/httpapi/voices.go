package httpapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ent0n29/storyteller/internal/voice"
)

type voiceSummary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	LanguageTag string            `json:"languageTag"`
	Category    string            `json:"category,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

type listVoicesResponse struct {
	DefaultVoiceID string         `json:"default_voice_id"`
	Voices         []voiceSummary `json:"voices"`
}

// handleListVoices serves the cached catalog. ?language= narrows it further
// without refetching.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "voice catalog not configured")
		return
	}
	voices, err := s.deps.Catalog.Voices(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		respondError(w, http.StatusInternalServerError, "voice_fetch_failed", err.Error())
		return
	}
	voices = voice.ForLanguage(voices, strings.TrimSpace(r.URL.Query().Get("language")))

	out := make([]voiceSummary, 0, len(voices))
	for _, v := range voices {
		out = append(out, voiceSummary{
			ID:          v.ID,
			Name:        v.Name,
			LanguageTag: v.LanguageTag,
			Category:    v.Category,
			Labels:      v.Labels,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoiceID: s.cfg.ElevenLabsTTSVoice,
		Voices:         out,
	})
}
