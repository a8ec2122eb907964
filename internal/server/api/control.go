package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// ControlHandler exposes recognition state and runtime toggles. The
// enabled flag and dispatch context are persisted so they survive a
// restart.
type ControlHandler struct {
	engine     Engine
	dispatcher Dispatcher
	settings   *store.SettingsRepository
	plugins    *plugin.Manager
	logger     *zap.Logger
}

// NewControlHandler creates a ControlHandler. settings and plugins may
// be nil.
func NewControlHandler(e Engine, d Dispatcher, settings *store.SettingsRepository, plugins *plugin.Manager, logger *zap.Logger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlHandler{engine: e, dispatcher: d, settings: settings, plugins: plugins, logger: logger.Named("api")}
}

// Register adds the control routes to mux.
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/enabled", h.handleEnabled)
	mux.HandleFunc("/api/context", h.handleContext)
	mux.HandleFunc("/api/history", h.handleHistory)
	mux.HandleFunc("/api/motions", h.handleMotions)
	mux.HandleFunc("/api/plugins", h.handlePlugins)
}

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

type contextBody struct {
	Context *string `json:"context"`
}

type motionResponse struct {
	gesture.MotionDefinition
	Source string `json:"source"`
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// handleState handles GET /api/state with the last published snapshot.
func (h *ControlHandler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// handleEnabled handles GET and PUT /api/enabled.
func (h *ControlHandler) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var body enabledBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Body must be {\"enabled\": bool}")
			return
		}
		h.engine.SetEnabled(*body.Enabled)
		if h.settings != nil {
			if err := h.settings.SetBool(store.SettingEnabled, *body.Enabled); err != nil {
				h.logger.Warn("failed to persist enabled flag", zap.Error(err))
			}
		}
	default:
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.engine.Enabled()})
}

// handleContext handles GET and PUT /api/context.
func (h *ControlHandler) handleContext(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var body contextBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Context == nil {
			writeError(w, http.StatusBadRequest, "Body must be {\"context\": string}")
			return
		}
		h.dispatcher.SetContext(*body.Context)
		if h.settings != nil {
			if err := h.settings.Set(store.SettingContext, *body.Context); err != nil {
				h.logger.Warn("failed to persist context", zap.Error(err))
			}
		}
	default:
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": h.dispatcher.Context()})
}

// handleHistory handles GET /api/history, newest first.
func (h *ControlHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	history := h.dispatcher.History()
	slices.Reverse(history)
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleMotions handles GET /api/motions: catalog motions plus the
// detector gestures.
func (h *ControlHandler) handleMotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	motions := h.engine.Catalog().Motions
	out := make([]motionResponse, 0, len(motions)+len(gesture.DetectorGestures))
	for _, m := range motions {
		out = append(out, motionResponse{MotionDefinition: m, Source: SourceCatalog})
	}
	for _, name := range gesture.DetectorGestures {
		out = append(out, motionResponse{MotionDefinition: gesture.MotionDefinition{ID: name}, Source: "detector"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"motions": out})
}

// handlePlugins handles GET /api/plugins.
func (h *ControlHandler) handlePlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	out := []pluginResponse{}
	if h.plugins != nil {
		for _, p := range h.plugins.List() {
			out = append(out, pluginResponse{
				Name:        p.Manifest.Name,
				Version:     p.Manifest.Version,
				Description: p.Manifest.Description,
				Actions:     p.Manifest.Actions,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}
