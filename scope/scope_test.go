package scope_test

import (
	"context"
	"testing"

	"github.com/xraph/coalesce/scope"
)

func TestCaptureEmpty(t *testing.T) {
	ws, key := scope.Capture(context.Background())
	if ws != "" || key != "" {
		t.Errorf("Capture on bare context = (%q, %q), want empty", ws, key)
	}
}

func TestRestoreCapture(t *testing.T) {
	ctx := scope.Restore(context.Background(), "ws1", "u42")
	ws, key := scope.Capture(ctx)
	if ws != "ws1" || key != "u42" {
		t.Errorf("Capture = (%q, %q), want (ws1, u42)", ws, key)
	}
}

func TestRestoreEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	if got := scope.Restore(ctx, "", ""); got != ctx {
		t.Error("Restore with empty scope should return the original context")
	}
}

func TestRestoreOverwrites(t *testing.T) {
	ctx := scope.Restore(context.Background(), "ws1", "u1")
	ctx = scope.Restore(ctx, "ws2", "u2")
	ws, key := scope.Capture(ctx)
	if ws != "ws2" || key != "u2" {
		t.Errorf("Capture = (%q, %q), want (ws2, u2)", ws, key)
	}
}
