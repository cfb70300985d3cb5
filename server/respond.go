package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodyBytes caps request bodies on the JSON API
const maxBodyBytes = 64 * 1024

// respondJSON sends a JSON response with appropriate headers.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError sends {"error": message}. Messages are fixed strings, never
// the text of an internal error.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"error":  message,
		"status": status,
	})
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
