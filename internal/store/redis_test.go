package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"signal-advisor/internal/engine"
)

func TestMirrorMemoryFallback(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(ctx, "", 0, zerolog.Nop())
	defer m.Close()

	sig := engine.Signal{ID: "sig-1", Symbol: "BTCUSDT", Direction: "buy", Status: engine.StatusActive}
	m.Put(ctx, sig)

	got, ok, err := m.Get(ctx, "sig-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got.Symbol != "BTCUSDT" {
		t.Errorf("unexpected mirrored signal: ok=%v %+v", ok, got)
	}

	m.Remove(ctx, "sig-1")
	if _, ok, _ := m.Get(ctx, "sig-1"); ok {
		t.Error("expected signal removed from mirror")
	}
}

func TestMirrorGetMissing(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(ctx, "", 0, zerolog.Nop())
	defer m.Close()

	_, ok, err := m.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected miss for unknown id")
	}
}
