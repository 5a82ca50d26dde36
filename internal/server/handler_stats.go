package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fiscstream/internal/util"
)

// handleStats exposes the live counters for one stream. Entries disappear
// when the stream closes, so a 404 just means "already finished".
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.stats.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		util.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "unknown stream"})
		return
	}
	util.WriteJSON(w, http.StatusOK, snap)
}
