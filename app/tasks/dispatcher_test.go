package tasks

import (
	"context"
	"testing"
	"time"
)

func TestInlineRunsImmediately(t *testing.T) {
	ran := false
	if !Inline.Post(func() { ran = true }) {
		t.Error("Inline should accept callbacks")
	}
	if !ran {
		t.Error("Inline should run the callback before Post returns")
	}
}

func TestLoopRunsInOrder(t *testing.T) {
	loop := NewLoop(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	results := make(chan int, 5)
	for i := 0; i < 5; i++ {
		if !loop.Post(func() { results <- i }) {
			t.Fatal("Expected Post to succeed")
		}
	}

	for want := 0; want < 5; want++ {
		select {
		case got := <-results:
			if got != want {
				t.Errorf("Expected callback %d, got: %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for callback")
		}
	}

	loop.Stop()
	if err := <-done; err != nil {
		t.Errorf("Expected nil after Stop, got: %v", err)
	}
}

func TestLoopPostAfterStop(t *testing.T) {
	loop := NewLoop(1)
	loop.Stop()
	loop.Stop()

	if loop.Post(func() {}) {
		t.Error("Expected Post to fail after Stop")
	}
}

func TestLoopRunStopsOnContext(t *testing.T) {
	loop := NewLoop(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := loop.Run(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}
