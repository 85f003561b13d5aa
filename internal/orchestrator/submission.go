package orchestrator

import (
	"context"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// Submission is a running generation.
type Submission struct {
	CorrelationID string
	ProviderID    string

	events chan domain.GenerationEvent
	done   chan struct{}
	result domain.Result
}

func newSubmission(correlationID, providerID string, count int) *Submission {
	// started, one event per requested artifact or failed slot, terminal
	return &Submission{
		CorrelationID: correlationID,
		ProviderID:    providerID,
		events:        make(chan domain.GenerationEvent, 2*count+2),
		done:          make(chan struct{}),
	}
}

// Events streams the submission's events. The channel is closed after the
// terminal event. Events not read are dropped when the buffer is full.
func (s *Submission) Events() <-chan domain.GenerationEvent {
	return s.events
}

// Done is closed once the result is available.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission resolves or ctx ends.
func (s *Submission) Wait(ctx context.Context) (domain.Result, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return domain.Result{}, ctx.Err()
	}
}

func (s *Submission) emit(ev domain.GenerationEvent) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Submission) resolve(res domain.Result) {
	s.result = res
	close(s.done)
	close(s.events)
}
