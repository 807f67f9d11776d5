package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	log.With("api_token", "abc").Info("request", "role", "department", "bearer", jwt, "headers", map[string]any{"Authorization": "Bearer x"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_token"] != "[REDACTED]" {
		t.Fatalf("expected token redacted, got %v", fields["api_token"])
	}
	if fields["bearer"] != "[REDACTED]" {
		t.Fatalf("expected jwt-looking value redacted, got %v", fields["bearer"])
	}
	if fields["role"] != "department" {
		t.Fatalf("expected plain value kept, got %v", fields["role"])
	}
	headers, ok := fields["headers"].(map[string]any)
	if !ok || headers["Authorization"] != "[REDACTED]" {
		t.Fatalf("expected nested authorization redacted, got %v", fields["headers"])
	}
}

func TestOddKeyValueListKeepsTrailingKey(t *testing.T) {
	got := sanitizeKVs([]any{"a", 1, "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Fatalf("unexpected sanitized list %v", got)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "production"} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("new %s: %v", mode, err)
		}
		log.Debug("hello")
	}
	Nop().Error("discarded", "password", "x")
}
