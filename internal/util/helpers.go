package util

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code. Shared so the
// handlers don't each grow their own copy.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
