// Package integration contains the controller's process-boundary adapters:
// the launcher handshake, the engine IPC client, the endpoint readiness
// poller, and the sleep inhibitor.
package integration

import (
	"context"
	"net"
	"strconv"
	"time"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultDialTimeout  = 2 * time.Second
)

// DialFunc opens a connection to a network address. It matches the signature
// of net.DialTimeout.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// ReadinessPoller waits for a TCP endpoint to accept connections. It retries
// indefinitely at a fixed interval; cancellation comes from the context.
type ReadinessPoller struct {
	// Interval between attempts. Zero means the 500ms default.
	Interval time.Duration
	// DialTimeout bounds each individual attempt. Zero means 2s.
	DialTimeout time.Duration
	// Dial overrides the dialer, for tests. Nil means net.DialTimeout.
	Dial DialFunc
}

// WaitReady blocks until address accepts a TCP connection, returning true on
// success and false when the context is cancelled or the address is not a
// valid host:port pair.
func (p *ReadinessPoller) WaitReady(ctx context.Context, address string) bool {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}
	// SplitHostPort accepts any port string; require a numeric one.
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return false
	}

	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	dialTimeout := p.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dial := p.Dial
	if dial == nil {
		dial = net.DialTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		conn, err := dial("tcp", address, dialTimeout)
		if err == nil {
			_ = conn.Close()
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
