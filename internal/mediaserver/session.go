package mediaserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/waabox/seerrdeck/internal/domain"
)

// AuthExpiredError is returned when the session cookie is rejected and signing in again
// with the saved Plex token fails too. Interactive login is required.
type AuthExpiredError struct {
	Server string
	Err    error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s session expired: re-authentication required", e.Server)
}

func (e *AuthExpiredError) Unwrap() error { return e.Err }

// Session wraps a Client and transparently handles 401 responses by signing in again
// once through refreshFn. If that fails, it returns *AuthExpiredError.
type Session struct {
	client    *Client
	refreshFn func(context.Context) error
}

// NewSession creates a Session.
// refreshFn is called on 401 to open a new server session, typically by passing the saved
// Plex token to client.SignInWithPlex.
func NewSession(client *Client, refreshFn func(context.Context) error) *Session {
	return &Session{client: client, refreshFn: refreshFn}
}

func (s *Session) handleUnauthorized(ctx context.Context, retry func() error) error {
	if err := s.refreshFn(ctx); err != nil {
		log.WithError(err).Debug("session refresh failed")
		return &AuthExpiredError{Server: s.client.baseURL, Err: err}
	}
	return retry()
}

// Me returns the signed-in user, re-signing in once if the session expired.
func (s *Session) Me(ctx context.Context) (domain.User, error) {
	user, err := s.client.Me(ctx)
	if err != nil && errors.Is(err, domain.ErrUnauthorized) {
		var retryUser domain.User
		retryErr := s.handleUnauthorized(ctx, func() error {
			var e error
			retryUser, e = s.client.Me(ctx)
			return e
		})
		if retryErr != nil {
			return domain.User{}, retryErr
		}
		return retryUser, nil
	}
	return user, err
}

// Status is unauthenticated and passes straight through.
func (s *Session) Status(ctx context.Context) (domain.ServerStatus, error) {
	return s.client.Status(ctx)
}
