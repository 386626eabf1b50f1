package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// TokenKey is the storage key under which the Plex token is saved after login.
const TokenKey = "plex-auth-token"

// ErrNoToken is returned when no Plex token has been saved yet.
var ErrNoToken = errors.New("no plex token saved")

// TokenManager persists the Plex token and uses it to re-open media server sessions.
type TokenManager struct {
	store KeyValueStore
	mu    sync.Mutex
}

// NewTokenManager creates a TokenManager backed by store.
func NewTokenManager(store KeyValueStore) *TokenManager {
	return &TokenManager{store: store}
}

// Save stores token, replacing any previous one.
func (tm *TokenManager) Save(ctx context.Context, token AuthToken) error {
	if token == "" {
		return fmt.Errorf("refusing to save an empty token")
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := tm.store.SetItem(ctx, TokenKey, string(token)); err != nil {
		return fmt.Errorf("saving plex token: %w", err)
	}
	return nil
}

// Token returns the saved token or ErrNoToken.
func (tm *TokenManager) Token(ctx context.Context) (AuthToken, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	v, ok, err := tm.store.GetItem(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("reading plex token: %w", err)
	}
	if !ok || v == "" {
		return "", ErrNoToken
	}
	return AuthToken(v), nil
}

// Clear forgets the saved token.
func (tm *TokenManager) Clear(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := tm.store.DeleteItem(ctx, TokenKey); err != nil {
		return fmt.Errorf("clearing plex token: %w", err)
	}
	return nil
}

// Reauthenticate hands the saved token to signIn, typically the media server's Plex
// sign-in, to open a fresh session without a browser round trip.
func (tm *TokenManager) Reauthenticate(ctx context.Context, signIn func(context.Context, AuthToken) error) error {
	token, err := tm.Token(ctx)
	if err != nil {
		return err
	}
	if err := signIn(ctx, token); err != nil {
		log.WithError(err).Debug("re-authentication with saved token failed")
		return fmt.Errorf("signing in with saved token: %w", err)
	}
	return nil
}
