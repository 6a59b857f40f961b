package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inrs-ai/CBOE-VIX/pkg/config"
)

func TestInitProviders_Disabled(t *testing.T) {
	providers, err := InitProviders(context.Background(), &config.OpenTelemetryConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if providers != nil {
		t.Error("Expected nil providers when disabled")
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil Shutdown to succeed, got: %v", err)
	}
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("Authorization=Basic abc, X-Scope-OrgID=42,broken,=novalue")

	if len(headers) != 2 {
		t.Fatalf("Expected 2 headers, got %d: %v", len(headers), headers)
	}
	if headers["Authorization"] != "Basic abc" {
		t.Errorf("Unexpected Authorization header: %q", headers["Authorization"])
	}
	if headers["X-Scope-OrgID"] != "42" {
		t.Errorf("Unexpected X-Scope-OrgID header: %q", headers["X-Scope-OrgID"])
	}
}

func TestLogWithTrace_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	tp := trace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	InfoWithTrace(ctx, logger, "inside span")
	span.End()

	InfoWithTrace(context.Background(), logger, "outside span")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["trace_id"]; !ok {
		t.Error("Expected trace_id on entry logged inside a span")
	}
	if _, ok := entries[1].ContextMap()["trace_id"]; ok {
		t.Error("Expected no trace_id on entry logged without a span")
	}
}

func TestLogWithTrace_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	DebugWithTrace(context.Background(), logger, "hidden")
	WarnWithTrace(context.Background(), logger, "shown")

	if logs.Len() != 1 {
		t.Fatalf("Expected 1 log entry, got %d", logs.Len())
	}
	if logs.All()[0].Message != "shown" {
		t.Errorf("Unexpected message: %s", logs.All()[0].Message)
	}
}
