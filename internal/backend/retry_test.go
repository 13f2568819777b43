package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hoosh/hoosh/internal/apperr"
	"github.com/hoosh/hoosh/internal/event"
)

func drainEvents(bus *event.Bus) []event.Event {
	var events []event.Event
	for {
		select {
		case ev := <-bus.Receive():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestRetryWithBackoff_RetryableErrorRetried(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	attempts := 0
	result, err := RetryWithBackoff(context.Background(), bus.Sender(), "Test operation", 4, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &apperr.RateLimitError{Message: "test rate limit"}
		}
		return "success", nil
	})

	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result != "success" {
		t.Fatalf("unexpected result: %q", result)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}

	events := drainEvents(bus)
	if len(events) != 3 {
		t.Fatalf("expected 3 retry events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Type != event.RetryEvent {
			t.Fatalf("expected RetryEvent, got %v", ev.Type)
		}
		if !strings.Contains(ev.Text, "Attempt") && !strings.Contains(ev.Text, "succeeded") {
			t.Fatalf("unexpected event text: %q", ev.Text)
		}
	}
	if !events[2].IsSuccess {
		t.Fatal("expected final event to report success")
	}
}

func TestRetryWithBackoff_NonRetryableErrorNotRetried(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	attempts := 0
	_, err := RetryWithBackoff(context.Background(), bus.Sender(), "Test operation", 4, func(ctx context.Context) (string, error) {
		attempts++
		return "", &apperr.AuthenticationError{Message: "invalid key"}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}

	events := drainEvents(bus)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != event.RetryEvent || events[0].IsSuccess {
		t.Fatalf("expected one failing RetryEvent, got %+v", events[0])
	}
}

func TestRetryWithBackoff_MaxAttemptsReached(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	attempts := 0
	_, err := RetryWithBackoff(context.Background(), bus.Sender(), "Test operation", 3, func(ctx context.Context) (string, error) {
		attempts++
		return "", &apperr.ServerError{Status: 503, Message: "service unavailable"}
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (1 initial + 2 retries), got %d", attempts)
	}

	events := drainEvents(bus)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 0; i < 2; i++ {
		if !strings.Contains(events[i].Text, "Attempt") {
			t.Fatalf("expected retry attempt text, got %q", events[i].Text)
		}
	}
	if events[2].IsSuccess {
		t.Fatal("expected final event to report failure")
	}
}

func TestRetryWithBackoff_RetryAfterOverridesDelay(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	attempts := 0
	start := time.Now()
	_, err := RetryWithBackoff(context.Background(), bus.Sender(), "Test operation", 4, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", &apperr.RateLimitError{RetryAfterSeconds: 1, Message: "rate limited"}
		}
		return "success", nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if elapsed < time.Second {
		t.Fatalf("expected at least 1s delay from retry_after, got %s", elapsed)
	}

	events := drainEvents(bus)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !strings.Contains(events[0].Text, "Retrying in 1s") {
		t.Fatalf("expected retry-after delay in message, got %q", events[0].Text)
	}
	if !events[1].IsSuccess {
		t.Fatal("expected second event to report success")
	}
}

func TestRetryWithBackoff_ContextCancellationDuringSleep(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, err := RetryWithBackoff(ctx, bus.Sender(), "Test operation", 5, func(ctx context.Context) (string, error) {
			attempts++
			return "", &apperr.ServerError{Status: 503, Message: "unavailable"}
		})
		if err == nil {
			t.Error("expected context cancellation error")
		}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
}
