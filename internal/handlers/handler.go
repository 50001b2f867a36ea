package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/eldtechnologies/gamelog-relay/internal/store"
)

// Liveness reports when the relay loop last made progress.
type Liveness interface {
	LastStep() time.Time
}

// Handler contains shared dependencies for the operations endpoints.
type Handler struct {
	bus        store.Bus
	relay      Liveness
	staleAfter time.Duration
}

// NewHandler creates a new Handler. The relay is reported stale when it has
// not completed a step for staleAfter.
func NewHandler(bus store.Bus, relay Liveness, staleAfter time.Duration) *Handler {
	return &Handler{bus: bus, relay: relay, staleAfter: staleAfter}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
