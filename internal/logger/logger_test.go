package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core, true)

	log.Info("submission stored",
		"learner_id", "Ada Lovelace <ada@example.com>",
		"learner_email", "ada@example.com",
		"password", "hunter2",
		"score", 80.0,
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if got := fields["learner_email"]; got != "[REDACTED]" {
		t.Fatalf("email not redacted: %v", got)
	}
	if got := fields["password"]; got != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", got)
	}
	if got, _ := fields["learner_id"].(string); !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("learner_id not hashed: %v", fields["learner_id"])
	}
	if got := fields["score"]; got != 80.0 {
		t.Fatalf("score altered: %v", got)
	}
}

func TestRedactionDisabled(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core, false).With("password", "plain")
	log.Warn("x")

	if got := logs.All()[0].ContextMap()["password"]; got != "plain" {
		t.Fatalf("expected raw value, got %v", got)
	}
}

func TestJWTLikeValuesRedacted(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewWithCore(core, true)
	log.Debug("header", "value", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig")

	if got := logs.All()[0].ContextMap()["value"]; got != "[REDACTED]" {
		t.Fatalf("jwt not redacted: %v", got)
	}
}
