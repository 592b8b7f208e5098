package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/store"
)

// GestureLister exposes the gestures known to the running recognizer.
type GestureLister interface {
	// Registry returns the definitions in use, with their effective limits.
	Registry() *gesture.Registry
	// Enabled returns the gesture types currently being matched.
	Enabled() []gesture.Type
}

// GestureConfigurer applies stored gesture settings to the running recognizer.
type GestureConfigurer interface {
	GestureLister
	ApplyGestureSetting(setting *store.GestureSetting) error
}

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	store      *store.Store
	recognizer GestureConfigurer
}

// NewGestureHandler creates a new GestureHandler.
func NewGestureHandler(s *store.Store, recognizer GestureConfigurer) *GestureHandler {
	return &GestureHandler{store: s, recognizer: recognizer}
}

// Routes registers the gesture endpoints on r.
func (h *GestureHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{type}", h.get)
	r.Put("/{type}", h.update)
}

type updateGestureRequest struct {
	Enabled       *bool `json:"enabled"`
	WindowSize    *int  `json:"window_size"`
	MaxPauseCount *int  `json:"max_pause_count"`
}

type gestureResponse struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Segments      int    `json:"segments"`
	Enabled       bool   `json:"enabled"`
	WindowSize    int    `json:"window_size"`
	MaxPauseCount int    `json:"max_pause_count"`
	Recognitions  int    `json:"recognitions"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

func (h *GestureHandler) enabledSet() map[gesture.Type]bool {
	set := make(map[gesture.Type]bool)
	for _, t := range h.recognizer.Enabled() {
		set[t] = true
	}
	return set
}

func toGestureResponse(d *gesture.Definition, enabled bool, count int, setting *store.GestureSetting) gestureResponse {
	resp := gestureResponse{
		Type:          string(d.Type),
		Name:          d.Name,
		Segments:      len(d.Segments),
		Enabled:       enabled,
		WindowSize:    d.WindowSize,
		MaxPauseCount: d.MaxPauseCount,
		Recognitions:  count,
	}
	if setting != nil {
		resp.UpdatedAt = setting.UpdatedAt.Format(timeFormat)
	}
	return resp
}

// list handles GET /api/gestures and returns every known gesture.
func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}
	byType := make(map[string]*store.GestureSetting, len(settings))
	for _, s := range settings {
		byType[s.Type] = s
	}

	counts, err := h.store.Recognitions().CountByType()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count recognitions")
		return
	}

	enabled := h.enabledSet()
	defs := h.recognizer.Registry().Definitions()
	response := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(defs)),
	}
	for _, d := range defs {
		t := string(d.Type)
		response.Gestures = append(response.Gestures, toGestureResponse(d, enabled[d.Type], counts[t], byType[t]))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/gestures/{type} and returns a single gesture.
func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request) {
	t := gesture.Type(chi.URLParam(r, "type"))
	def, ok := h.recognizer.Registry().Lookup(t)
	if !ok {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}
	h.respond(w, def)
}

func (h *GestureHandler) respond(w http.ResponseWriter, def *gesture.Definition) {
	setting, err := h.store.Gestures().Get(string(def.Type))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	counts, err := h.store.Recognitions().CountByType()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count recognitions")
		return
	}

	writeJSON(w, http.StatusOK, toGestureResponse(def, h.enabledSet()[def.Type], counts[string(def.Type)], setting))
}

// update handles PUT /api/gestures/{type}, stores the new settings and
// applies them to the running recognizer.
func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request) {
	t := gesture.Type(chi.URLParam(r, "type"))
	if _, ok := h.recognizer.Registry().Lookup(t); !ok {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}

	var req updateGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.WindowSize != nil && *req.WindowSize < 0 {
		writeError(w, http.StatusBadRequest, "window_size must not be negative")
		return
	}
	if req.MaxPauseCount != nil && *req.MaxPauseCount < 0 {
		writeError(w, http.StatusBadRequest, "max_pause_count must not be negative")
		return
	}

	setting, err := h.store.Gestures().Get(string(t))
	if errors.Is(err, store.ErrNotFound) {
		setting = &store.GestureSetting{Type: string(t), Enabled: h.enabledSet()[t]}
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	if req.Enabled != nil {
		setting.Enabled = *req.Enabled
	}
	if req.WindowSize != nil {
		setting.WindowSize = *req.WindowSize
	}
	if req.MaxPauseCount != nil {
		setting.MaxPauseCount = *req.MaxPauseCount
	}

	if err := h.store.Gestures().Upsert(setting); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}
	if err := h.recognizer.ApplyGestureSetting(setting); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply gesture settings")
		return
	}

	def, _ := h.recognizer.Registry().Lookup(t)
	h.respond(w, def)
}
