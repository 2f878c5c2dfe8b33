package integration

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// flakyDialer fails a fixed number of attempts before succeeding.
type flakyDialer struct {
	mu       sync.Mutex
	failures int
	attempts []time.Time
}

func (d *flakyDialer) dial(_, _ string, _ time.Duration) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = append(d.attempts, time.Now())
	if len(d.attempts) <= d.failures {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	go func() { _ = server.Close() }()
	return client, nil
}

func TestWaitReadySucceedsAfterRetries(t *testing.T) {
	dialer := &flakyDialer{failures: 3}
	poller := &ReadinessPoller{Interval: time.Millisecond, Dial: dialer.dial}

	if !poller.WaitReady(context.Background(), "127.0.0.1:16384") {
		t.Fatal("expected readiness after retries")
	}
	if got := len(dialer.attempts); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
}

func TestWaitReadyMalformedAddress(t *testing.T) {
	addresses := []string{
		"not an address",
		"127.0.0.1",          // missing port
		"127.0.0.1:notaport", // non-numeric port
		"127.0.0.1:99999",    // port out of range
	}
	for _, address := range addresses {
		t.Run(address, func(t *testing.T) {
			dialer := &flakyDialer{}
			poller := &ReadinessPoller{Interval: time.Millisecond, Dial: dialer.dial}

			if poller.WaitReady(context.Background(), address) {
				t.Fatal("malformed address must report not ready")
			}
			if len(dialer.attempts) != 0 {
				t.Error("malformed address must not be dialled")
			}
		})
	}
}

func TestWaitReadyContextCancellation(t *testing.T) {
	dialer := &flakyDialer{failures: 1 << 30}
	poller := &ReadinessPoller{Interval: time.Millisecond, Dial: dialer.dial}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan bool, 1)
	go func() { done <- poller.WaitReady(ctx, "127.0.0.1:16384") }()

	select {
	case ready := <-done:
		if ready {
			t.Fatal("cancelled wait must report not ready")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitReady did not honor context cancellation")
	}
}

func TestWaitReadyRespectsInterval(t *testing.T) {
	dialer := &flakyDialer{failures: 2}
	poller := &ReadinessPoller{Interval: 30 * time.Millisecond, Dial: dialer.dial}

	if !poller.WaitReady(context.Background(), "127.0.0.1:16384") {
		t.Fatal("expected readiness")
	}
	if len(dialer.attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(dialer.attempts))
	}
	gap := dialer.attempts[2].Sub(dialer.attempts[1])
	if gap < 20*time.Millisecond {
		t.Errorf("retry gap = %v, want at least the configured interval", gap)
	}
}
