package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/natya/internal/store"
)

const (
	defaultRecognitionLimit = 50
	maxRecognitionLimit     = 500
)

// RecognitionHandler serves the recognition history.
type RecognitionHandler struct {
	store *store.Store
}

// NewRecognitionHandler creates a new RecognitionHandler with the given store.
func NewRecognitionHandler(s *store.Store) *RecognitionHandler {
	return &RecognitionHandler{store: s}
}

// Routes registers the recognition endpoints on r.
func (h *RecognitionHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Delete("/", h.prune)
	r.Get("/stats", h.stats)
}

type recognitionResponse struct {
	ID           string `json:"id"`
	GestureType  string `json:"gesture_type"`
	TrackingID   uint64 `json:"tracking_id"`
	Tick         uint64 `json:"tick"`
	RecognizedAt string `json:"recognized_at"`
}

type listRecognitionsResponse struct {
	Recognitions []recognitionResponse `json:"recognitions"`
}

type statsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type pruneResponse struct {
	Removed int64 `json:"removed"`
}

// list handles GET /api/recognitions?limit=N, newest first.
func (h *RecognitionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecognitionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecognitionLimit)
	}

	recs, err := h.store.Recognitions().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recognitions")
		return
	}

	response := listRecognitionsResponse{
		Recognitions: make([]recognitionResponse, 0, len(recs)),
	}
	for _, rec := range recs {
		response.Recognitions = append(response.Recognitions, recognitionResponse{
			ID:           rec.ID,
			GestureType:  rec.GestureType,
			TrackingID:   rec.TrackingID,
			Tick:         rec.Tick,
			RecognizedAt: rec.RecognizedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// stats handles GET /api/recognitions/stats and returns counts per gesture.
func (h *RecognitionHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Recognitions().CountByType()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count recognitions")
		return
	}

	response := statsResponse{Counts: counts}
	for _, n := range counts {
		response.Total += n
	}
	writeJSON(w, http.StatusOK, response)
}

// prune handles DELETE /api/recognitions?before=<RFC 3339 time>.
func (h *RecognitionHandler) prune(w http.ResponseWriter, r *http.Request) {
	before, err := time.Parse(timeFormat, r.URL.Query().Get("before"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "before must be an RFC 3339 time")
		return
	}

	removed, err := h.store.Recognitions().DeleteBefore(before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete recognitions")
		return
	}

	writeJSON(w, http.StatusOK, pruneResponse{Removed: removed})
}
