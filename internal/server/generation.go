package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/events"
	"github.com/tjfontaine/polyglot-image-studio/internal/orchestrator"
)

type generationRequest struct {
	Prompt     string            `json:"prompt"`
	Count      int               `json:"count"`
	Parameters domain.Parameters `json:"parameters"`
	Supersede  bool              `json:"supersede"`
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func (h *Handler) createGeneration(w http.ResponseWriter, r *http.Request) {
	var body generationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		badRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if body.Count == 0 {
		body.Count = 1
	}

	req := domain.NewGenerationRequest(body.Prompt, body.Count, body.Parameters)
	req.Supersede = body.Supersede
	AddLogField(r.Context(), "correlation_id", req.CorrelationID)

	sub, err := h.orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsEventStream(r) {
		h.streamSubmission(w, r, sub)
		return
	}

	res, err := sub.Wait(r.Context())
	if err != nil {
		// the client went away; the generation keeps running
		AddError(r.Context(), err)
		return
	}
	AddLogField(r.Context(), "outcome", string(res.Outcome))

	payload := events.NewResultPayload(res)
	switch res.Outcome {
	case domain.OutcomeFailure:
		status := http.StatusBadGateway
		var e *domain.Error
		if errors.As(res.Err, &e) {
			status = e.HTTPStatusCode()
		}
		AddError(r.Context(), res.Err)
		writeJSON(w, status, payload)
	case domain.OutcomeSuperseded:
		writeJSON(w, http.StatusConflict, payload)
	default:
		writeJSON(w, http.StatusOK, payload)
	}
}

// streamSubmission writes the submission's events as SSE until the
// terminal event.
func (h *Handler) streamSubmission(w http.ResponseWriter, r *http.Request, sub *orchestrator.Submission) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Correlation-ID", sub.CorrelationID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(events.NewMessage(ev))
			if err != nil {
				h.logger.Error("failed to encode event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func (h *Handler) cancelGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.orchestrator.Cancel(id) {
		writeError(w, r, domain.ErrNotFound("generation", id))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
