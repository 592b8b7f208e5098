package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/natya/internal/plugin"
)

// PluginHandler lists the discovered plugins.
type PluginHandler struct {
	plugins *plugin.Manager
}

// NewPluginHandler creates a new PluginHandler over the given manager.
func NewPluginHandler(m *plugin.Manager) *PluginHandler {
	return &PluginHandler{plugins: m}
}

// Routes registers the plugin endpoints on r.
func (h *PluginHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

// list handles GET /api/plugins.
func (h *PluginHandler) list(w http.ResponseWriter, r *http.Request) {
	plugins := h.plugins.List()
	response := listPluginsResponse{
		Plugins: make([]pluginResponse, 0, len(plugins)),
	}
	for _, p := range plugins {
		actions := p.Manifest.Actions
		if actions == nil {
			actions = []string{}
		}
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     actions,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
