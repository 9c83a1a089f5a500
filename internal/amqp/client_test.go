package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"closed network connection error", errors.New("use of closed network connection"), true},
		{"closed delivery channel", errors.New("message channel closed"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "caffeine", queueName: "entries"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)
		client.recordSuccess()

		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("Failure count should be reset to 0 after success")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateClosed)
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("Circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("Circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("State should be StateHalfOpen after timeout")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("State should be StateOpen after a half-open failure")
		}
	})
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "caffeine", queueName: "entries"}

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishEntrySync(context.Background(), 123, "ada")
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("expected ErrCircuitOpen, got: %v", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := client.PublishEntrySync(ctx, 123, "ada")
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	ok := func(context.Context, *EntryMessage) error { return nil }
	fail := func(context.Context, *EntryMessage) error { return errors.New("sheets down") }
	valid := []byte(`{"type":"sync","id":7,"principal":"ada"}`)

	t.Run("malformed body is rejected without requeue", func(t *testing.T) {
		a := &fakeAck{}
		handleDelivery(context.Background(), []byte(`{nope`), "m1", a, ok)
		if !a.nacked || a.requeued || a.acked {
			t.Errorf("unexpected ack state %+v", a)
		}
	})

	t.Run("unknown type is rejected without requeue", func(t *testing.T) {
		a := &fakeAck{}
		handleDelivery(context.Background(), []byte(`{"type":"update","id":7}`), "m2", a, ok)
		if !a.nacked || a.requeued {
			t.Errorf("unexpected ack state %+v", a)
		}
	})

	t.Run("handler error requeues", func(t *testing.T) {
		a := &fakeAck{}
		handleDelivery(context.Background(), valid, "m3", a, fail)
		if !a.nacked || !a.requeued {
			t.Errorf("unexpected ack state %+v", a)
		}
	})

	t.Run("success acks", func(t *testing.T) {
		a := &fakeAck{}
		var got *EntryMessage
		handleDelivery(context.Background(), valid, "m4", a, func(_ context.Context, m *EntryMessage) error {
			got = m
			return nil
		})
		if !a.acked || a.nacked {
			t.Errorf("unexpected ack state %+v", a)
		}
		if got == nil || got.ID != 7 || got.Principal != "ada" {
			t.Errorf("unexpected message %+v", got)
		}
	})
}
