package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/plugin"
	"github.com/ayusman/natya/internal/store"
)

// ActionHandler handles HTTP requests for action resources.
type ActionHandler struct {
	store    *store.Store
	gestures GestureLister
	plugins  *plugin.Manager
}

// NewActionHandler creates a new ActionHandler. Gesture types are checked
// against gestures; plugin names and actions are checked against plugins when
// it is non-nil.
func NewActionHandler(s *store.Store, gestures GestureLister, plugins *plugin.Manager) *ActionHandler {
	return &ActionHandler{store: s, gestures: gestures, plugins: plugins}
}

// Routes registers the action endpoints on r.
func (h *ActionHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// Request and response types

type createActionRequest struct {
	GestureType string          `json:"gesture_type"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     *bool           `json:"enabled"`
}

type updateActionRequest struct {
	GestureType string          `json:"gesture_type"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     *bool           `json:"enabled"`
}

type actionResponse struct {
	ID          string          `json:"id"`
	GestureType string          `json:"gesture_type"`
	PluginName  string          `json:"plugin_name"`
	ActionName  string          `json:"action_name"`
	Config      json.RawMessage `json:"config"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

// toActionResponse converts a store.Action to an actionResponse.
func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:          a.ID,
		GestureType: a.GestureType,
		PluginName:  a.PluginName,
		ActionName:  a.ActionName,
		Config:      config,
		Enabled:     a.Enabled,
		CreatedAt:   a.CreatedAt.Format(timeFormat),
	}
}

// validate checks the binding target of a. It returns an empty string when the
// binding is acceptable.
func (h *ActionHandler) validate(a *store.Action) string {
	if _, ok := h.gestures.Registry().Lookup(gesture.Type(a.GestureType)); !ok {
		return "Unknown gesture type"
	}
	if h.plugins == nil {
		return ""
	}
	p, err := h.plugins.Get(a.PluginName)
	if err != nil {
		return "Plugin not found"
	}
	if !p.Manifest.HasAction(a.ActionName) {
		return "Plugin does not provide this action"
	}
	return ""
}

// list handles GET /api/actions and returns all actions, optionally filtered
// by ?gesture_type=.
func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		actions []*store.Action
		err     error
	)
	if t := r.URL.Query().Get("gesture_type"); t != "" {
		actions, err = h.store.Actions().ListByGestureType(t)
	} else {
		actions, err = h.store.Actions().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(actions)),
	}

	for _, a := range actions {
		response.Actions = append(response.Actions, toActionResponse(a))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/actions/{id} and returns a single action.
func (h *ActionHandler) get(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// create handles POST /api/actions and binds a new action to a gesture.
// A gesture may have several actions.
func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.GestureType == "" {
		writeError(w, http.StatusBadRequest, "gesture_type is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	action := &store.Action{
		ID:          uuid.New().String(),
		GestureType: req.GestureType,
		PluginName:  req.PluginName,
		ActionName:  req.ActionName,
		Config:      config,
		Enabled:     req.Enabled == nil || *req.Enabled,
	}

	if msg := h.validate(action); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Actions().Create(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create action")
		return
	}

	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

// update handles PUT /api/actions/{id} and updates an existing action.
func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request) {
	action, err := h.store.Actions().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get action")
		return
	}

	var req updateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.GestureType != "" {
		action.GestureType = req.GestureType
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}

	if msg := h.validate(action); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Actions().Update(action); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update action")
		return
	}

	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// delete handles DELETE /api/actions/{id} and removes an action.
func (h *ActionHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Actions().Delete(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Action not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete action")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
