package api

import (
	"net/http"

	"github.com/dgallion1/mdsplit/internal/normalize"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	claude, ok := s.orchestrator.Normalizer().(*normalize.ClaudeNormalizer)
	if !ok || claude.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model": claude.Model(),
		"stats": claude.Stats.Snapshot(),
	})
}
