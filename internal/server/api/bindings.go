package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/store"
)

// BindingHandler handles HTTP requests for binding resources. Every
// change is persisted and the full set restaged on the dispatcher.
type BindingHandler struct {
	// mu orders each write with its restage so sets are staged in the
	// order they were persisted.
	mu         sync.Mutex
	store      *store.Store
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewBindingHandler creates a new BindingHandler.
func NewBindingHandler(s *store.Store, d Dispatcher, logger *zap.Logger) *BindingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BindingHandler{store: s, dispatcher: d, logger: logger.Named("api")}
}

// ServeHTTP routes /api/bindings and /api/bindings/{id}.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/bindings"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		methodNotAllowed(w)
	}
}

type bindingResponse struct {
	binding.Binding
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(sb *store.StoredBinding) bindingResponse {
	return bindingResponse{
		Binding:   sb.Binding,
		CreatedAt: sb.CreatedAt.Format(timeFormat),
		UpdatedAt: sb.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/bindings.
func (h *BindingHandler) list(w http.ResponseWriter) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(bindings))}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toBindingResponse(b))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/bindings/{id}.
func (h *BindingHandler) get(w http.ResponseWriter, id string) {
	b, err := h.store.Bindings().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// create handles POST /api/bindings. A missing id is generated.
func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var b binding.Binding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.store.Bindings().Get(b.ID); err == nil {
		writeError(w, http.StatusConflict, "Binding already exists")
		return
	}

	created, err := h.store.Bindings().Create(b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}
	h.restage()
	writeJSON(w, http.StatusCreated, toBindingResponse(created))
}

// update handles PUT /api/bindings/{id}.
func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var b binding.Binding
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if b.ID != "" && b.ID != id {
		writeError(w, http.StatusBadRequest, "Binding id does not match path")
		return
	}
	b.ID = id
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.persist(func() error { return h.store.Bindings().Update(b) }); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}
	h.get(w, id)
}

// delete handles DELETE /api/bindings/{id}.
func (h *BindingHandler) delete(w http.ResponseWriter, id string) {
	if err := h.persist(func() error { return h.store.Bindings().Delete(id) }); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// persist runs write and, when it succeeds, restages the bindings.
func (h *BindingHandler) persist(write func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := write(); err != nil {
		return err
	}
	h.restage()
	return nil
}

// restage stages every stored binding. Callers hold h.mu.
func (h *BindingHandler) restage() {
	all, err := h.store.Bindings().All()
	if err == nil {
		err = h.dispatcher.Stage(all)
	}
	if err != nil {
		h.logger.Error("failed to restage bindings", zap.Error(err))
	}
}
