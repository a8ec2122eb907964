package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Pose sources.
const (
	SourceCatalog    = "catalog"
	SourceCalibrated = "calibrated"
)

// PoseHandler serves the effective pose catalog and calibrates new poses
// from recorded samples. refresh rebuilds the engine catalog after the
// stored poses change.
type PoseHandler struct {
	store      *store.Store
	engine     Engine
	calibrator *gesture.Calibrator
	refresh    func() error
	logger     *zap.Logger
}

// NewPoseHandler creates a new PoseHandler.
func NewPoseHandler(s *store.Store, e Engine, refresh func() error, logger *zap.Logger) *PoseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoseHandler{
		store:      s,
		engine:     e,
		calibrator: gesture.NewCalibrator(),
		refresh:    refresh,
		logger:     logger.Named("api"),
	}
}

// ServeHTTP routes /api/poses, /api/poses/{id},
// /api/poses/{id}/calibrate and /api/poses/{id}/samples.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/poses"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w)
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, parts[0])
		case http.MethodDelete:
			h.delete(w, parts[0])
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "calibrate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.calibrate(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "samples":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.samples(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type poseResponse struct {
	gesture.PoseDefinition
	Source  string `json:"source"`
	Samples int    `json:"samples,omitempty"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

type calibrateRequest struct {
	Samples   []json.RawMessage `json:"samples"`
	Tolerance *float64          `json:"tolerance,omitempty"`
	Margin    *float64          `json:"margin,omitempty"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

func (h *PoseHandler) calibrated() (map[string]*store.StoredPose, error) {
	stored, err := h.store.Poses().List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*store.StoredPose, len(stored))
	for _, p := range stored {
		out[p.Definition.ID] = p
	}
	return out, nil
}

func toPoseResponse(def gesture.PoseDefinition, calibrated map[string]*store.StoredPose) poseResponse {
	if sp, ok := calibrated[def.ID]; ok {
		return poseResponse{PoseDefinition: def, Source: SourceCalibrated, Samples: sp.Samples}
	}
	return poseResponse{PoseDefinition: def, Source: SourceCatalog}
}

// list handles GET /api/poses: every pose the engine recognizes.
func (h *PoseHandler) list(w http.ResponseWriter) {
	calibrated, err := h.calibrated()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	poses := h.engine.Catalog().Poses
	response := listPosesResponse{Poses: make([]poseResponse, 0, len(poses))}
	for _, p := range poses {
		response.Poses = append(response.Poses, toPoseResponse(p, calibrated))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/poses/{id}.
func (h *PoseHandler) get(w http.ResponseWriter, id string) {
	def, ok := h.engine.Catalog().Pose(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Pose not found")
		return
	}
	calibrated, err := h.calibrated()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}
	writeJSON(w, http.StatusOK, toPoseResponse(def, calibrated))
}

// calibrate handles POST /api/poses/{id}/calibrate. The pose is derived
// from the samples, stored, and layered over the catalog.
func (h *PoseHandler) calibrate(w http.ResponseWriter, r *http.Request, id string) {
	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c := *h.calibrator
	if req.Tolerance != nil {
		c.Tolerance = *req.Tolerance
	}
	if req.Margin != nil {
		c.Margin = *req.Margin
	}

	def, err := c.CalibrateSamples(id, req.Samples)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.Catalog().WithPoses(def).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Poses().Save(def, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pose")
		return
	}
	if err := h.refresh(); err != nil {
		h.logger.Error("failed to refresh catalog", zap.String("pose", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to apply pose")
		return
	}

	h.logger.Info("pose calibrated", zap.String("pose", id), zap.Int("samples", len(req.Samples)))
	writeJSON(w, http.StatusCreated, poseResponse{PoseDefinition: def, Source: SourceCalibrated, Samples: len(req.Samples)})
}

// samples handles GET /api/poses/{id}/samples.
func (h *PoseHandler) samples(w http.ResponseWriter, id string) {
	samples, err := h.store.Poses().Samples(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			PoseID:      s.PoseID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/poses/{id}. Only calibrated poses can be
// removed; a catalog pose it shadowed becomes visible again.
func (h *PoseHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Poses().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Calibrated pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}
	if err := h.refresh(); err != nil {
		h.logger.Error("failed to refresh catalog", zap.String("pose", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to apply catalog")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
