package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hperssn/steady/internal/domain"
	"github.com/hperssn/steady/internal/runner"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondRunError maps run command failures to status codes. Invalid state
// errors point at a client driving the run wrongly, so they are logged.
func respondRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, runner.ErrInvalidState):
		log.Printf("rejected run command from %s: %v", UserID(r), err)
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, runner.ErrUnknownCommand):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidCatalog):
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("run command failed: %v", err)
		respondError(w, "internal error", http.StatusInternalServerError)
	}
}
