// Package api provides the HTTP API handlers for bindings, poses and
// recognition control.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/gesture"
)

// Engine is the part of the recognition engine the API drives.
type Engine interface {
	Snapshot() *engine.Snapshot
	Enabled() bool
	SetEnabled(on bool)
	Catalog() gesture.Catalog
}

// Dispatcher is the part of the binding dispatcher the API drives.
type Dispatcher interface {
	Stage(bs []binding.Binding) error
	History() []binding.HistoryEntry
	Context() string
	SetContext(scope string)
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = time.RFC3339

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
