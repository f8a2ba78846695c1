package admin

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError writes {"success":false,"error":code,"message":message}.
// message must not carry internal error detail.
func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
