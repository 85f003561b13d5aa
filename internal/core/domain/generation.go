package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinCount and MaxCount bound the number of artifacts per submission.
	MinCount = 1
	MaxCount = 4
)

// GenerationRequest is one user submission. It is owned by the orchestration
// call that resolves it and discarded afterwards.
type GenerationRequest struct {
	Prompt        string     `json:"prompt"`
	Count         int        `json:"count"`
	Parameters    Parameters `json:"parameters"`
	RequestedAt   time.Time  `json:"requestedAt"`
	CorrelationID string     `json:"correlationId"`

	// Supersede explicitly asks to replace an in-flight generation even when
	// the configured policy rejects concurrent submissions.
	Supersede bool `json:"supersede,omitempty"`
}

// NewGenerationRequest stamps a fresh correlation id and request time.
func NewGenerationRequest(prompt string, count int, params Parameters) GenerationRequest {
	return GenerationRequest{
		Prompt:        prompt,
		Count:         count,
		Parameters:    params,
		RequestedAt:   time.Now().UTC(),
		CorrelationID: uuid.NewString(),
	}
}

// Artifact is one generated output plus its provenance.
type Artifact struct {
	ID             string     `json:"id"`
	CorrelationID  string     `json:"correlationId"`
	URI            string     `json:"uri"`
	MIMEType       string     `json:"mimeType,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ProviderID     string     `json:"providerId"`
	PromptSnapshot string     `json:"promptSnapshot"`
	Parameters     Parameters `json:"parameters"`
}

// Outcome discriminates how a submission resolved.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomePartial    Outcome = "partial"
	OutcomeFailure    Outcome = "failure"
	OutcomeSuperseded Outcome = "superseded"
)

// LegFailure records one failed fan-out call.
type LegFailure struct {
	Leg int   `json:"leg"`
	Err error `json:"-"`
}

// Result is the discriminated resolution of a submission.
type Result struct {
	CorrelationID string       `json:"correlationId"`
	ProviderID    string       `json:"providerId,omitempty"`
	Outcome       Outcome      `json:"outcome"`
	Artifacts     []Artifact   `json:"artifacts"`
	Failures      []LegFailure `json:"-"`
	Err           error        `json:"-"`
}

// Warnings is the number of failed legs in a successful or partial result.
func (r Result) Warnings() int {
	return len(r.Failures)
}

// Succeeded reports whether at least one artifact was produced and merged.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial
}

// EventType names a generation event.
type EventType string

const (
	EventStarted    EventType = "started"
	EventArtifact   EventType = "artifact"
	EventLegFailed  EventType = "leg_failed"
	EventCompleted  EventType = "completed"
	EventSuperseded EventType = "superseded"
)

// GenerationEvent is one element of the stream a submission emits.
type GenerationEvent struct {
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlationId"`
	Leg           int       `json:"leg,omitempty"`
	Artifact      *Artifact `json:"artifact,omitempty"`
	Err           error     `json:"-"`
	Result        *Result   `json:"result,omitempty"`
	At            time.Time `json:"at"`
}

// Terminal reports whether the event ends its stream.
func (e GenerationEvent) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventSuperseded
}
