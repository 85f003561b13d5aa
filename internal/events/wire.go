package events

import (
	"errors"
	"time"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// ErrorPayload is the wire form of a studio error.
type ErrorPayload struct {
	Type      domain.ErrorType `json:"type"`
	Code      domain.ErrorCode `json:"code,omitempty"`
	Message   string           `json:"message"`
	Param     string           `json:"param,omitempty"`
	Retryable bool             `json:"retryable"`
}

// NewErrorPayload converts err. Errors outside the studio taxonomy are
// reported as network errors.
func NewErrorPayload(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	var e *domain.Error
	if !errors.As(err, &e) {
		e = domain.ErrNetwork(err.Error())
	}
	return &ErrorPayload{
		Type:      e.Type,
		Code:      e.Code,
		Message:   e.Message,
		Param:     e.Param,
		Retryable: e.Retryable(),
	}
}

// LegFailurePayload is the wire form of a failed leg.
type LegFailurePayload struct {
	Leg   int           `json:"leg"`
	Error *ErrorPayload `json:"error"`
}

// ResultPayload is the wire form of a submission result.
type ResultPayload struct {
	CorrelationID string              `json:"correlationId"`
	ProviderID    string              `json:"providerId,omitempty"`
	Outcome       domain.Outcome      `json:"outcome"`
	Artifacts     []domain.Artifact   `json:"artifacts"`
	Warnings      int                 `json:"warnings"`
	Failures      []LegFailurePayload `json:"failures,omitempty"`
	Error         *ErrorPayload       `json:"error,omitempty"`
}

// NewResultPayload converts r.
func NewResultPayload(r domain.Result) ResultPayload {
	p := ResultPayload{
		CorrelationID: r.CorrelationID,
		ProviderID:    r.ProviderID,
		Outcome:       r.Outcome,
		Artifacts:     r.Artifacts,
		Warnings:      r.Warnings(),
		Error:         NewErrorPayload(r.Err),
	}
	if p.Artifacts == nil {
		p.Artifacts = []domain.Artifact{}
	}
	for _, f := range r.Failures {
		p.Failures = append(p.Failures, LegFailurePayload{Leg: f.Leg, Error: NewErrorPayload(f.Err)})
	}
	return p
}

// Message is the wire form of a generation event, shared by the SSE and
// WebSocket streams.
type Message struct {
	Type          domain.EventType `json:"type"`
	CorrelationID string           `json:"correlationId"`
	Leg           int              `json:"leg,omitempty"`
	Artifact      *domain.Artifact `json:"artifact,omitempty"`
	Error         *ErrorPayload    `json:"error,omitempty"`
	Result        *ResultPayload   `json:"result,omitempty"`
	At            time.Time        `json:"at"`
}

// NewMessage converts ev.
func NewMessage(ev domain.GenerationEvent) Message {
	m := Message{
		Type:          ev.Type,
		CorrelationID: ev.CorrelationID,
		Leg:           ev.Leg,
		Artifact:      ev.Artifact,
		Error:         NewErrorPayload(ev.Err),
		At:            ev.At,
	}
	if ev.Result != nil {
		rp := NewResultPayload(*ev.Result)
		m.Result = &rp
	}
	return m
}
