package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
	"github.com/tjfontaine/polyglot-image-studio/internal/session"
)

// ConfirmClearAll is the X-Confirm value DELETE /v1/session requires.
const ConfirmClearAll = "clear-all"

type sessionView struct {
	domain.SessionState
	InFlightCorrelationID string `json:"inFlightCorrelationId,omitempty"`
	HistoryCapacity       int    `json:"historyCapacity"`
}

func (h *Handler) sessionView() sessionView {
	st := h.session.Snapshot()
	return sessionView{
		SessionState:          st,
		InFlightCorrelationID: st.InFlightCorrelationID,
		HistoryCapacity:       h.session.Capacity(),
	}
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionView())
}

type sessionPatch struct {
	Prompt       *string                             `json:"prompt"`
	ActiveModule *domain.Module                      `json:"activeModule"`
	Mode         *domain.Mode                        `json:"mode"`
	Parameters   map[domain.Module]domain.Parameters `json:"perModuleParameters"`
}

func (h *Handler) patchSession(w http.ResponseWriter, r *http.Request) {
	var p sessionPatch
	if err := decodeJSON(w, r, &p); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}

	err := h.session.Apply(session.Patch{
		Prompt:       p.Prompt,
		ActiveModule: p.ActiveModule,
		Mode:         p.Mode,
		Parameters:   p.Parameters,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Confirm") != ConfirmClearAll {
		err := domain.ErrConfiguration("clearing the session requires X-Confirm: " + ConfirmClearAll).
			WithParam("X-Confirm")
		AddError(r.Context(), err)
		writeJSON(w, http.StatusPreconditionRequired, errorBody{Error: events.NewErrorPayload(err)})
		return
	}
	h.session.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	h.session.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeArtifact(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RemoveArtifact(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
