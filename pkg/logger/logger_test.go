package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := WithRequestID(WithLogger(context.Background(), base), "req-42")
	Info(ctx, "submitted", "doctype", "Asset")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["doctype"] != "Asset" {
		t.Fatalf("unexpected fields: %#v", fields)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Desugar().Core().Enabled(zap.InfoLevel) || log.Desugar().Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected info level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) != Nop() {
		t.Fatalf("expected nop logger for nil")
	}
	if RequestID(context.Background()) != "" {
		t.Fatalf("expected empty request id")
	}
}
