package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tjfontaine/polyglot-image-studio/internal/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, shutdown, err := InitTracer(config.TelemetryConfig{}, nil, nil)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer should produce invalid span contexts")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := InitTracer(config.TelemetryConfig{Enabled: true, ServiceName: "studio-test"}, &buf, nil)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "generation")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"Name": "generation"`) {
		t.Errorf("exported output missing span name:\n%s", out)
	}
	if !strings.Contains(out, "studio-test") {
		t.Error("exported output missing service name")
	}
}
