package catalog

import (
	"context"
	"testing"
	"time"
)

func TestGate(t *testing.T) {
	g := NewGate()
	if !g.Ready() {
		t.Fatal("New gate should be open")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on open gate failed: %v", err)
	}

	g.Close()
	g.Close()
	if g.Ready() {
		t.Fatal("Gate should be closed")
	}

	released := make(chan struct{})
	go func() {
		if err := g.Wait(context.Background()); err == nil {
			close(released)
		}
	}()

	select {
	case <-released:
		t.Fatal("Wait returned while gate was closed")
	case <-time.After(20 * time.Millisecond):
	}

	g.Open()
	g.Open()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Open")
	}
}

func TestGate_WaitCancelled(t *testing.T) {
	g := NewGate()
	g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
