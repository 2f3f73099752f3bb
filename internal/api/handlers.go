package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/frankjeworrek-lab/yat/internal/config"
	"github.com/frankjeworrek-lab/yat/internal/manager"
	"github.com/frankjeworrek-lab/yat/internal/monitor"
	"github.com/frankjeworrek-lab/yat/internal/plugin"
	"github.com/frankjeworrek-lab/yat/internal/providers"
	"github.com/frankjeworrek-lab/yat/internal/registry"
	"github.com/frankjeworrek-lab/yat/internal/reset"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	logger   *zap.Logger
	manager  *manager.Manager
	registry *registry.Registry
	loader   *plugin.Loader
	monitor  *monitor.Monitor
	reset    *reset.Service
	chatCfg  config.ChatConfig
}

func NewHandler(logger *zap.Logger, m *manager.Manager, reg *registry.Registry, loader *plugin.Loader, mon *monitor.Monitor, rs *reset.Service, chatCfg config.ChatConfig) *Handler {
	return &Handler{
		logger:   logger,
		manager:  m,
		registry: reg,
		loader:   loader,
		monitor:  mon,
		reset:    rs,
		chatCfg:  chatCfg,
	}
}

type providerView struct {
	registry.Record
	Registered bool `json:"registered"`
	Healthy    bool `json:"healthy"`
}

// ListProviders merges registry records with runtime state.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	health := h.manager.Health(r.Context())

	var views []providerView
	for _, rec := range h.registry.All() {
		_, err := h.manager.Get(rec.ID)
		views = append(views, providerView{
			Record:     rec,
			Registered: err == nil,
			Healthy:    health[rec.ID],
		})
	}

	active, activeModel := h.manager.Active()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"providers":       views,
		"active_provider": active,
		"active_model":    activeModel,
	})
}

func (h *Handler) ProviderModels(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	models, err := h.manager.ProviderModels(r.Context(), id)
	if err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.manager.AvailableModels(r.Context())
	if models == nil {
		models = []providers.ModelInfo{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (h *Handler) EnableProvider(w http.ResponseWriter, r *http.Request) {
	h.setProviderEnabled(w, r, true)
}

func (h *Handler) DisableProvider(w http.ResponseWriter, r *http.Request) {
	h.setProviderEnabled(w, r, false)
}

func (h *Handler) setProviderEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if err := h.registry.SetEnabled(id, enabled); err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	if !enabled {
		h.manager.Remove(r.Context(), id)
	}
	if err := h.registry.Save(); err != nil {
		h.logger.Error("Failed to persist provider registry", zap.Error(err))
	}

	rec, _ := h.registry.Get(id)
	h.writeJSON(w, http.StatusOK, rec)
}

// UpdateSettings persists new setting values. Changed credentials take
// effect for a provider after a reload.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.UpdateSettings(id, values); err != nil {
		h.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ReloadProvider hot-reloads one plugin: the old instance is dropped,
// the manifest re-read and the provider re-initialized.
func (h *Handler) ReloadProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	name, ok := h.pluginNameFor(id)
	if !ok {
		h.sendError(w, http.StatusNotFound, "no plugin for provider: "+id)
		return
	}

	h.manager.Remove(r.Context(), id)

	p, err := h.loader.Reload(name)
	if err != nil {
		h.registry.SetStatus(id, registry.StatusError, err.Error())
		h.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := manager.InitProvider(r.Context(), h.manager, h.registry, id, p); err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec, _ := h.registry.Get(id)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) pluginNameFor(id string) (string, bool) {
	names, err := h.loader.Discover()
	if err != nil {
		return "", false
	}
	for _, name := range names {
		if plugin.ProviderID(name) == id {
			return name, true
		}
	}
	return "", false
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	providerCount := len(h.manager.IDs())

	status := "ok"
	services := map[string]string{
		"providers": "healthy",
		"network":   "healthy",
	}
	if providerCount == 0 {
		services["providers"] = "no providers registered"
		status = "degraded"
	}
	if h.monitor != nil && !h.monitor.Online() {
		services["network"] = "offline"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]any{
		"status":    status,
		"services":  services,
		"providers": providerCount,
	})
}

func (h *Handler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	online := h.monitor == nil || h.monitor.Online()
	h.writeJSON(w, http.StatusOK, map[string]bool{"online": online})
}

type factoryResetRequest struct {
	// Action is "restart" or "close"; restart is the default.
	Action string `json:"action"`
}

func (h *Handler) FactoryReset(w http.ResponseWriter, r *http.Request) {
	var req factoryResetRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.reset.Wipe(); err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.manager.Shutdown(context.Background())

	switch req.Action {
	case "close":
		h.reset.CloseApp()
	default:
		h.reset.RestartApp()
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (h *Handler) sendError(w http.ResponseWriter, code int, message string) {
	var resp apiError
	resp.Error.Message = message
	resp.Error.Type = "invalid_request_error"
	h.writeJSON(w, code, resp)
}
