package integration

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/deskpilot/deskpilot/pkg/models"
)

// launchRequest is the wire format sent to the launcher daemon.
type launchRequest struct {
	BundleName string `json:"bundle_name"`
}

// launchResponse is the launcher daemon's acknowledgement.
type launchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// LaunchHelper performs the application launch handshake: it asks the
// launcher daemon over its unix socket to start the client application, then
// polls the device endpoint until it accepts connections. Every failure mode
// reports not-launched; the caller decides whether that is fatal.
type LaunchHelper struct {
	// Config supplies the launcher socket path and the device address.
	Config func() models.Config
	// Poller waits for the device endpoint. Nil means a default poller.
	Poller *ReadinessPoller
	// DialContext overrides the socket dialer, for tests.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
	// HandshakeTimeout bounds the daemon exchange. Zero means 30s.
	HandshakeTimeout time.Duration
}

// Launch starts the client application for the given channel and waits for
// the device endpoint to become reachable.
func (h *LaunchHelper) Launch(ctx context.Context, channel models.ClientChannel) bool {
	bundle := channel.BundleName()
	if bundle == "" {
		return false
	}

	cfg := h.Config()
	if !h.handshake(ctx, cfg.LauncherSocket, bundle) {
		return false
	}

	poller := h.Poller
	if poller == nil {
		poller = &ReadinessPoller{}
	}
	return poller.WaitReady(ctx, cfg.Connection.Address)
}

func (h *LaunchHelper) handshake(ctx context.Context, socket, bundle string) bool {
	timeout := h.HandshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := h.DialContext
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}

	conn, err := dial(ctx, "unix", socket)
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(launchRequest{BundleName: bundle}); err != nil {
		return false
	}

	var resp launchResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return false
	}
	return resp.Success
}
