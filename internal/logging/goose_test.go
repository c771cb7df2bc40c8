package logging

import (
	"testing"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ goose.Logger = (*GooseLogger)(nil)

// TestGooseLoggerPrintf checks goose lines land in zap at info level without
// the trailing newline.
func TestGooseLoggerPrintf(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	NewGooseLogger(zap.New(core)).Printf("OK   %s\n", "00001_players_games.sql")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %v", entries[0].Level)
	}
	if got := entries[0].Message; got != "OK   00001_players_games.sql" {
		t.Fatalf("unexpected message %q", got)
	}
}

// TestNewGooseLoggerNilUsesGlobal ensures a nil logger follows zap.L().
func TestNewGooseLoggerNilUsesGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	NewGooseLogger(nil).Printf("goose: no migrations to run")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
}
