// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned by the media server client when the API responds with HTTP 401.
// Callers can check for it using errors.Is to trigger a session refresh or re-login.
var ErrUnauthorized = errors.New("unauthorized")

// Login failure classes. Every error returned from a Plex login attempt matches exactly one
// of these via errors.Is.
var (
	// ErrInitialization means the device identity or the identity headers could not be built.
	ErrInitialization = errors.New("initialization failed")
	// ErrProtocol means the identity provider could not be reached or answered with a
	// non-2xx status or a malformed body.
	ErrProtocol = errors.New("identity provider protocol error")
	// ErrLaunch means the authorization page could not be opened in a browser.
	ErrLaunch = errors.New("could not launch browser")
	// ErrTimeout means polling ran past the configured maximum without receiving a token.
	ErrTimeout = errors.New("authorization timed out")
	// ErrCancelled means the caller cancelled the login. UIs treat it as a user action.
	ErrCancelled = errors.New("cancelled by caller")
	// ErrLoginInProgress is returned when Login is called while another attempt is running.
	ErrLoginInProgress = errors.New("login already in progress")
)

// ProtocolError describes a failed exchange with the identity provider.
// It matches ErrProtocol with errors.Is and unwraps to the transport or decode cause.
type ProtocolError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": protocol error"
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is reports ErrProtocol as a match so callers need not know the concrete type.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }
