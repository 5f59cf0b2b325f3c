package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/api"
)

// reject ends the request with the JSON error body the API client decodes.
func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg})
}
