package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
	"github.com/tjfontaine/polyglot-image-studio/internal/orchestrator"
	"github.com/tjfontaine/polyglot-image-studio/internal/provider/registry"
	"github.com/tjfontaine/polyglot-image-studio/internal/providerconfig"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
)

// Handler serves the studio API.
type Handler struct {
	registry     *registry.Registry
	configs      *providerconfig.Store
	session      *session.Store
	orchestrator *orchestrator.Orchestrator
	hub          *events.Hub
	logger       *slog.Logger
	startedAt    time.Time
}

// NewHandler wires the API. hub may be nil, which disables /v1/events.
func NewHandler(
	reg *registry.Registry,
	configs *providerconfig.Store,
	sess *session.Store,
	orch *orchestrator.Orchestrator,
	hub *events.Hub,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:     reg,
		configs:      configs,
		session:      sess,
		orchestrator: orch,
		hub:          hub,
		logger:       logger,
		startedAt:    time.Now(),
	}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", h.listProviders)
		r.Get("/providers/{id}", h.getProvider)

		r.Get("/configs", h.listConfigs)
		r.Post("/configs", h.createConfig)
		r.Get("/configs/{id}", h.getConfig)
		r.Put("/configs/{id}", h.putConfig)
		r.Delete("/configs/{id}", h.deleteConfig)
		r.Post("/configs/{id}/activate", h.activateConfig)
		r.Get("/configs/{id}/validation", h.validateConfig)

		r.Get("/session", h.getSession)
		r.Patch("/session", h.patchSession)
		r.Delete("/session", h.clearSession)
		r.Delete("/session/history", h.clearHistory)
		r.Delete("/session/history/{id}", h.removeArtifact)

		r.Post("/generations", h.createGeneration)
		r.Delete("/generations/{id}", h.cancelGeneration)

		if h.hub != nil {
			r.Get("/events", h.streamEvents)
		}
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"providers": len(h.registry.IDs()),
		"inFlight":  h.session.InFlight() != "",
	})
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.registry.List()})
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	desc, err := h.registry.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// configView is a redacted config plus its validation result.
type configView struct {
	domain.ProviderConfig
	Validation domain.ValidationResult `json:"validation"`
}

func (h *Handler) view(cfg domain.ProviderConfig) configView {
	desc, _ := h.registry.Lookup(cfg.ProviderID)
	res, _ := h.registry.Validate(cfg)
	if res.Missing == nil {
		res.Missing = []string{}
	}
	return configView{ProviderConfig: cfg.Redacted(desc), Validation: res}
}

type configRequest struct {
	ID          string            `json:"id"`
	ProviderID  string            `json:"providerId"`
	Name        string            `json:"name"`
	Credentials map[string]string `json:"credentials"`
	Settings    domain.Parameters `json:"settings"`
	IsActive    bool              `json:"isActive"`
}

func (c configRequest) config() domain.ProviderConfig {
	return domain.ProviderConfig{
		ID:          c.ID,
		ProviderID:  c.ProviderID,
		Name:        c.Name,
		Credentials: c.Credentials,
		Settings:    c.Settings,
		IsActive:    c.IsActive,
	}
}

func (h *Handler) listConfigs(w http.ResponseWriter, r *http.Request) {
	configs := h.configs.List()
	out := make([]configView, 0, len(configs))
	for _, c := range configs {
		out = append(out, h.view(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": out})
}

func (h *Handler) createConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	h.upsert(w, r, req.config(), http.StatusCreated)
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	req.ID = chi.URLParam(r, "id")
	h.upsert(w, r, req.config(), http.StatusOK)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request, cfg domain.ProviderConfig, status int) {
	saved, err := h.configs.Upsert(cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	AddLogField(r.Context(), "config_id", saved.ID)
	writeJSON(w, status, h.view(saved))
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, ok := h.configs.Get(id)
	if !ok {
		writeError(w, r, domain.ErrNotFound("provider config", id))
		return
	}
	writeJSON(w, http.StatusOK, h.view(cfg))
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	h.configs.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.configs.SetActive(id); err != nil {
		writeError(w, r, err)
		return
	}
	cfg, _ := h.configs.Get(id)
	writeJSON(w, http.StatusOK, h.view(cfg))
}

func (h *Handler) validateConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, ok := h.configs.Get(id)
	if !ok {
		writeError(w, r, domain.ErrNotFound("provider config", id))
		return
	}
	res, err := h.configs.Validate(cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Missing == nil {
		res.Missing = []string{}
	}
	writeJSON(w, http.StatusOK, res)
}
