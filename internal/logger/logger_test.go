package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"local", "dev", "docker", "prod"} {
		l, err := NewLogger(env, "whatmovie", "")
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", env, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "whatmovie", "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestNewLogger_Errors(t *testing.T) {
	if _, err := NewLogger("staging", "", ""); err == nil {
		t.Error("expected error for unknown env")
	}
	if _, err := NewLogger("local", "", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestRequestLogger(t *testing.T) {
	fallback := zap.NewExample()
	if FromContext(context.Background(), fallback) != fallback {
		t.Error("missing request logger should return the fallback")
	}
	if l := FromContext(context.Background(), nil); l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("missing logger and fallback should be a no-op")
	}

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, reqLogger := WithRequestLogger(context.Background(), zap.New(core), zap.String("request_id", "r-1"))
	FromContext(ctx, fallback).Info("handled")
	if FromContext(ctx, fallback) != reqLogger {
		t.Error("request logger not returned from context")
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["request_id"] != "r-1" {
		t.Errorf("entries = %+v", entries)
	}
}
