package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waabox/seerrdeck/internal/domain"
	"github.com/waabox/seerrdeck/internal/platform"
)

// State is a step of a login attempt.
type State int

const (
	StateIdle State = iota
	StateHeadersBuilt
	StatePinIssued
	StateAuthorizationOpened
	StatePolling
	StateResolved
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHeadersBuilt:
		return "headers-built"
	case StatePinIssued:
		return "pin-issued"
	case StateAuthorizationOpened:
		return "authorization-opened"
	case StatePolling:
		return "polling"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage names the step a login failed in.
type Stage string

const (
	StageInitialize Stage = "initialize"
	StagePin        Stage = "pin"
	StageLaunch     Stage = "launch"
	StagePoll       Stage = "poll"
)

// LoginError is the single error type Login returns. Err carries the classified cause
// (domain.ErrInitialization, domain.ProtocolError, domain.ErrLaunch, domain.ErrTimeout or
// domain.ErrCancelled), so callers can use errors.Is on the LoginError directly.
type LoginError struct {
	Stage Stage
	Err   error
}

func (e *LoginError) Error() string {
	if errors.Is(e.Err, domain.ErrCancelled) {
		return e.Err.Error()
	}
	var summary string
	switch {
	case e.Stage == StageInitialize:
		summary = "could not initialize"
	case e.Stage == StagePin:
		summary = "could not obtain pin"
	case e.Stage == StageLaunch:
		summary = "could not launch browser"
	case errors.Is(e.Err, domain.ErrTimeout):
		summary = "polling timed out"
	default:
		summary = "polling failed"
	}
	return summary + ": " + e.Err.Error()
}

func (e *LoginError) Unwrap() error { return e.Err }

// Event reports a state transition of a login attempt.
type Event struct {
	State State
	Pin   AuthPin // set from StatePinIssued on
	URL   string  // set from StateAuthorizationOpened on
	Err   error   // set for StateFailed and StateCancelled
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver registers fn to receive every state transition. fn runs on the login
// goroutine and must not block.
func WithObserver(fn func(Event)) Option {
	return func(c *Coordinator) { c.observer = fn }
}

// WithAuthURL overrides the app.plex.tv authorization page base.
func WithAuthURL(base string) Option {
	return func(c *Coordinator) { c.authBase = base }
}

// FactsFunc returns the platform facts used for the identity headers.
type FactsFunc func() platform.Facts

// Coordinator runs the Plex PIN login. It holds no per-attempt state: everything an
// attempt needs lives in Login's locals. Only one attempt may run at a time; an
// overlapping call fails with domain.ErrLoginInProgress.
type Coordinator struct {
	identity *DeviceIdentity
	product  ProductInfo
	facts    FactsFunc
	pins     *PinRequester
	launcher Launcher
	poller   *TokenPoller
	authBase string
	observer func(Event)

	running atomic.Bool
}

// NewCoordinator wires the login steps together.
func NewCoordinator(
	identity *DeviceIdentity,
	product ProductInfo,
	facts FactsFunc,
	pins *PinRequester,
	launcher Launcher,
	poller *TokenPoller,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		identity: identity,
		product:  product,
		facts:    facts,
		pins:     pins,
		launcher: launcher,
		poller:   poller,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login runs one device-authorization attempt and returns the Plex token.
// Cancel ctx to abandon the attempt; the result is then a *LoginError matching
// domain.ErrCancelled.
func (c *Coordinator) Login(ctx context.Context) (AuthToken, error) {
	if !c.running.CompareAndSwap(false, true) {
		return "", domain.ErrLoginInProgress
	}
	defer c.running.Store(false)

	entry := log.WithField("product", c.product.Name)
	token, err := c.login(ctx, entry)
	if err != nil {
		state := StateFailed
		if errors.Is(err, domain.ErrCancelled) {
			state = StateCancelled
			entry.Info("login cancelled")
		} else {
			entry.WithError(err).Warn("login failed")
		}
		c.emit(Event{State: state, Err: err})
		return "", err
	}
	c.emit(Event{State: StateResolved})
	entry.Info("login resolved")
	return token, nil
}

func (c *Coordinator) login(ctx context.Context, entry *logrus.Entry) (AuthToken, error) {
	if ctx.Err() != nil {
		return "", &LoginError{Stage: StageInitialize, Err: fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())}
	}

	id, err := c.identity.Get(ctx)
	if err != nil {
		return "", &LoginError{Stage: StageInitialize, Err: c.classify(ctx, domain.ErrInitialization, err)}
	}
	var facts platform.Facts
	if c.facts != nil {
		facts = c.facts()
	}
	headers, err := BuildHeaders(id, c.product, facts)
	if err != nil {
		return "", &LoginError{Stage: StageInitialize, Err: fmt.Errorf("%w: %w", domain.ErrInitialization, err)}
	}
	c.emit(Event{State: StateHeadersBuilt})

	pin, err := c.pins.Request(ctx, headers)
	if err != nil {
		return "", &LoginError{Stage: StagePin, Err: c.classify(ctx, nil, err)}
	}
	entry = entry.WithField("pin_id", pin.ID)
	c.emit(Event{State: StatePinIssued, Pin: pin})

	authURL := AuthorizationURL(c.authBase, pin, headers)
	if err := c.launcher.Open(authURL); err != nil {
		return "", &LoginError{Stage: StageLaunch, Err: fmt.Errorf("%w: %w", domain.ErrLaunch, err)}
	}
	entry.Debug("authorization page opened")
	c.emit(Event{State: StateAuthorizationOpened, Pin: pin, URL: authURL})

	c.emit(Event{State: StatePolling, Pin: pin, URL: authURL})
	token, err := c.poller.poll(ctx, pin, headers, c.pollTimeout(pin))
	if err != nil {
		return "", &LoginError{Stage: StagePoll, Err: err}
	}
	return token, nil
}

// pollTimeout is the configured poll timeout, capped by the pin's own lifetime.
func (c *Coordinator) pollTimeout(pin AuthPin) time.Duration {
	timeout := c.poller.timeout
	if pin.ExpiresIn > 0 && (timeout == 0 || pin.ExpiresIn < timeout) {
		timeout = pin.ExpiresIn
	}
	return timeout
}

// classify marks err as a cancellation when ctx is done, otherwise wraps it in class.
func (c *Coordinator) classify(ctx context.Context, class, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
	if class == nil {
		return err
	}
	return fmt.Errorf("%w: %w", class, err)
}

func (c *Coordinator) emit(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}
