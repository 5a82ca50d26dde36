package server

import (
	"net/http"
	"strings"

	"fiscstream/internal/util"
)

// requireAPIKey guards the /v1 routes with a bearer key from configuration.
func (a *App) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			util.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		token := strings.TrimSpace(header[len("bearer "):])
		for _, key := range a.cfg.APIKeys {
			if token != "" && token == key {
				next.ServeHTTP(w, r)
				return
			}
		}
		util.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	})
}
