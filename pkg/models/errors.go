package models

import "errors"

var (
	// ErrEngineBusy is returned when a session start finds the engine handle
	// already running a session.
	ErrEngineBusy = errors.New("engine is already running")

	// ErrImageUnavailable is returned when a screenshot is requested and the
	// engine has no frame ready.
	ErrImageUnavailable = errors.New("no screenshot frame available")

	// ErrAppStartFailed is returned when the launch handshake did not end
	// with a reachable application.
	ErrAppStartFailed = errors.New("application launch failed")
)
