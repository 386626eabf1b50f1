package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waabox/seerrdeck/internal/domain"
)

// TokenPoller checks a PIN on plex.tv until a token is issued.
type TokenPoller struct {
	baseURL  string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
}

// NewTokenPoller creates a TokenPoller.
// Pass an empty baseURL to use plex.tv. interval is the constant delay between a response
// and the next request; pass 0 to skip the delay (useful in tests). timeout bounds the
// whole poll; pass 0 for no limit other than the caller's context.
func NewTokenPoller(baseURL string, client *http.Client, interval, timeout time.Duration) *TokenPoller {
	if baseURL == "" {
		baseURL = plexDefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if interval < 0 {
		interval = 0
	}
	if timeout < 0 {
		timeout = 0
	}
	return &TokenPoller{baseURL: baseURL, client: client, interval: interval, timeout: timeout}
}

// Poll checks pin until plex.tv returns a non-empty authToken.
//
// A 2xx response without a token means the user has not approved yet; Poll waits one
// interval and asks again. Any transport error, non-2xx status or malformed body ends
// the poll with a *domain.ProtocolError. Cancelling ctx ends it with domain.ErrCancelled,
// discarding any response that arrives afterwards. Running past the timeout ends it with
// domain.ErrTimeout.
func (p *TokenPoller) Poll(ctx context.Context, pin AuthPin, headers Headers) (AuthToken, error) {
	return p.poll(ctx, pin, headers, p.timeout)
}

func (p *TokenPoller) poll(ctx context.Context, pin AuthPin, headers Headers, timeout time.Duration) (AuthToken, error) {
	if !pin.Valid() {
		return "", fmt.Errorf("poll: invalid pin %+v", pin)
	}
	if !headers.Complete() {
		return "", fmt.Errorf("poll: identity headers are incomplete")
	}
	endpoint, err := pinURL(p.baseURL, pin.ID)
	if err != nil {
		return "", &domain.ProtocolError{Op: "check pin", Err: fmt.Errorf("building URL: %w", err)}
	}

	pollCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		pollCtx, cancel = context.WithTimeoutCause(ctx, timeout, domain.ErrTimeout)
	}
	defer cancel()

	entry := log.WithFields(logrus.Fields{"pin_id": pin.ID, "interval": p.interval, "timeout": timeout})
	entry.Debug("polling pin")

	var wait *time.Timer
	defer func() {
		if wait != nil {
			wait.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		if err := interrupted(ctx, pollCtx); err != nil {
			entry.WithError(err).Debug("poll interrupted")
			return "", err
		}

		var raw pinResource
		reqErr := doPlex(pollCtx, p.client, http.MethodGet, endpoint, headers, "check pin", &raw)

		// A response that lands after cancellation or timeout is discarded.
		if err := interrupted(ctx, pollCtx); err != nil {
			entry.WithError(err).Debug("poll interrupted")
			return "", err
		}
		if reqErr != nil {
			return "", reqErr
		}
		if raw.AuthToken != nil && *raw.AuthToken != "" {
			entry.WithField("attempts", attempt).Info("pin authorized")
			return AuthToken(*raw.AuthToken), nil
		}

		if p.interval == 0 {
			continue
		}
		if wait == nil {
			wait = time.NewTimer(p.interval)
		} else {
			wait.Reset(p.interval)
		}
		select {
		case <-wait.C:
		case <-pollCtx.Done():
			return "", interrupted(ctx, pollCtx)
		}
	}
}

// interrupted reports why polling must stop, or nil to keep going. Caller cancellation
// wins over the poll timeout.
func interrupted(parent, pollCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	if pollCtx.Err() != nil {
		if cause := context.Cause(pollCtx); errors.Is(cause, domain.ErrTimeout) {
			return cause
		}
		return fmt.Errorf("%w: %w", domain.ErrCancelled, pollCtx.Err())
	}
	return nil
}
