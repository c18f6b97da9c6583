// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avdmanager

import (
	"context"
	"testing"

	"github.com/forkbombeu/avdprovision/internal/avd"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestManagerStartSpanAttributes(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(provider)
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	manager := &Manager{
		env: avd.Env{
			Context:       context.Background(),
			CorrelationID: "corr-123",
		},
	}

	env, span := manager.startSpan(
		"avdmanager.Setup",
		attribute.String("version", "1"),
		attribute.Int("images", 2),
	)
	if env.Context == manager.env.Context {
		t.Fatal("expected env context to carry the new span")
	}
	span.End()

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrs := map[string]any{}
	for _, attr := range spans[0].Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrs["correlation_id"] != "corr-123" {
		t.Fatalf("expected correlation_id to be corr-123, got %v", attrs["correlation_id"])
	}
	if attrs["version"] != "1" {
		t.Fatalf("expected version to be 1, got %v", attrs["version"])
	}
	if attrs["images"] != int64(2) {
		t.Fatalf("expected images to be 2, got %v", attrs["images"])
	}
}
