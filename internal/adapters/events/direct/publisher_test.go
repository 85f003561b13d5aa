package direct

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
)

type recorder struct {
	events []domain.GenerationEvent
}

func (r *recorder) Publish(_ context.Context, ev domain.GenerationEvent) {
	r.events = append(r.events, ev)
}

func TestNewPublisher_SkipsNil(t *testing.T) {
	p := NewPublisher(nil, &recorder{}, nil)
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestPublisher_DeliversInOrder(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var p ports.EventPublisher = NewPublisher(a, b)

	p.Publish(context.Background(), domain.GenerationEvent{Type: domain.EventStarted, CorrelationID: "c1"})
	p.Publish(context.Background(), domain.GenerationEvent{Type: domain.EventCompleted, CorrelationID: "c1"})

	for name, r := range map[string]*recorder{"a": a, "b": b} {
		if len(r.events) != 2 {
			t.Fatalf("%s received %d events, want 2", name, len(r.events))
		}
		if r.events[0].Type != domain.EventStarted || r.events[1].Type != domain.EventCompleted {
			t.Errorf("%s order = %v", name, r.events)
		}
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	p := NewLogPublisher(logger)

	ctx := context.Background()
	p.Publish(ctx, domain.GenerationEvent{Type: domain.EventArtifact, CorrelationID: "c1", Artifact: &domain.Artifact{ID: "a1"}})
	p.Publish(ctx, domain.GenerationEvent{Type: domain.EventLegFailed, CorrelationID: "c1", Leg: 2, Err: errors.New("upstream 503")})
	p.Publish(ctx, domain.GenerationEvent{
		Type:          domain.EventCompleted,
		CorrelationID: "c1",
		Result: &domain.Result{
			Outcome:   domain.OutcomePartial,
			Artifacts: []domain.Artifact{{ID: "a1"}},
			Failures:  []domain.LegFailure{{Leg: 2}},
		},
	})

	out := buf.String()
	if strings.Contains(out, `"artifact_id"`) {
		t.Error("artifact events should be logged below Info")
	}
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, "upstream 503") {
		t.Errorf("leg failure not logged as warning:\n%s", out)
	}
	if !strings.Contains(out, `"outcome":"partial"`) || !strings.Contains(out, `"warnings":1`) {
		t.Errorf("completion missing outcome fields:\n%s", out)
	}
}
