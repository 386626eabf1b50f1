package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/seerrdeck/internal/auth"
	"github.com/waabox/seerrdeck/internal/domain"
)

// LoginFunc runs one Plex login attempt, reporting each state transition to observe.
type LoginFunc func(ctx context.Context, observe func(auth.Event)) (auth.AuthToken, error)

// EventMsg carries a login state transition into the model.
// It is exported so that tests can inject it directly into LoginModel.Update.
type EventMsg struct {
	Attempt int
	Event   auth.Event
}

// LoginDoneMsg is sent when a login attempt returns.
type LoginDoneMsg struct {
	Attempt int
	Token   auth.AuthToken
	Err     error
}

type phase int

const (
	phaseRequesting phase = iota
	phaseWaiting
	phaseSuccess
	phaseTimeout
	phaseFailed
	phaseCancelled
)

func (p phase) finished() bool { return p >= phaseSuccess }

// LoginModel is the Bubbletea model for the interactive Plex sign-in.
type LoginModel struct {
	login   LoginFunc
	product string
	keys    keyMap

	attempt int
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan auth.Event

	phase phase
	pin   auth.AuthPin
	url   string
	token auth.AuthToken
	err   error
}

// NewLoginModel creates the login model. The first attempt starts on Init.
func NewLoginModel(product string, login LoginFunc) LoginModel {
	return LoginModel{login: login, product: product, keys: newKeyMap()}.begin()
}

// begin prepares a fresh attempt with its own context and event channel.
func (m LoginModel) begin() LoginModel {
	if m.cancel != nil {
		m.cancel()
	}
	m.attempt++
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = make(chan auth.Event, 8)
	m.phase = phaseRequesting
	m.pin = auth.AuthPin{}
	m.url = ""
	m.token = ""
	m.err = nil
	return m
}

// Init starts the first login attempt.
func (m LoginModel) Init() tea.Cmd {
	return tea.Batch(m.runLogin(), m.waitForEvent())
}

func (m LoginModel) runLogin() tea.Cmd {
	ctx, events, attempt, login := m.ctx, m.events, m.attempt, m.login
	return func() tea.Msg {
		observe := func(e auth.Event) {
			select {
			case events <- e:
			default:
			}
		}
		token, err := login(ctx, observe)
		close(events)
		return LoginDoneMsg{Attempt: attempt, Token: token, Err: err}
	}
}

func (m LoginModel) waitForEvent() tea.Cmd {
	events, attempt := m.events, m.attempt
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Attempt: attempt, Event: e}
	}
}

// Update handles login progress and key events.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case EventMsg:
		if msg.Attempt != m.attempt || m.phase.finished() {
			return m, nil
		}
		switch msg.Event.State {
		case auth.StatePinIssued:
			m.pin = msg.Event.Pin
		case auth.StateAuthorizationOpened, auth.StatePolling:
			m.pin = msg.Event.Pin
			m.url = msg.Event.URL
			m.phase = phaseWaiting
		case auth.StateResolved, auth.StateFailed, auth.StateCancelled:
			return m, nil
		}
		return m, m.waitForEvent()

	case LoginDoneMsg:
		if msg.Attempt != m.attempt {
			return m, nil
		}
		m.err = msg.Err
		switch {
		case msg.Err == nil:
			m.phase = phaseSuccess
			m.token = msg.Token
			return m, tea.Quit
		case errors.Is(msg.Err, domain.ErrCancelled):
			m.phase = phaseCancelled
			return m, tea.Quit
		case errors.Is(msg.Err, domain.ErrTimeout):
			m.phase = phaseTimeout
		default:
			m.phase = phaseFailed
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancel()
			if !m.phase.finished() {
				m.phase = phaseCancelled
				m.err = domain.ErrCancelled
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.cancel):
			if m.phase.finished() {
				return m, tea.Quit
			}
			m.cancel()
		case key.Matches(msg, m.keys.retry):
			if m.phase == phaseTimeout || m.phase == phaseFailed {
				m = m.begin()
				return m, m.Init()
			}
		}
	}
	return m, nil
}

// Token returns the Plex token once the login succeeded.
func (m LoginModel) Token() auth.AuthToken { return m.token }

// Err returns the outcome of the last attempt, nil on success.
func (m LoginModel) Err() error { return m.err }

// View renders the current login step.
func (m LoginModel) View() string {
	header := " " + titleStyle.Render(m.product+" | Sign in with Plex") + "\n"
	separator := "────────────────────────────────────────────────────────────\n"
	footer := helpLine(m.keys.cancel, m.keys.quit)

	var body string
	switch m.phase {
	case phaseRequesting:
		body = "\n Requesting PIN…\n\n"
	case phaseWaiting:
		body = fmt.Sprintf(
			"\n Visit:  %s\n"+
				" Code:   %s\n\n"+
				" Waiting for authorization…\n\n",
			m.url, codeStyle.Render(m.pin.Code))
	case phaseSuccess:
		return " " + successStyle("Signed in to Plex.") + "\n"
	case phaseCancelled:
		return ""
	case phaseTimeout:
		body = "\n The code expired before it was approved.\n\n"
		footer = helpLine(m.keys.retry, m.keys.quit)
	case phaseFailed:
		body = "\n " + errorStyle(fmt.Sprintf("Could not sign in: %v", m.err)) + "\n\n"
		footer = helpLine(m.keys.retry, m.keys.quit)
	}
	return header + separator + body + separator + footer
}

// Run starts the Bubbletea program and returns the token once the user is signed in.
func Run(product string, login LoginFunc, output io.Writer) (auth.AuthToken, error) {
	p := tea.NewProgram(NewLoginModel(product, login), tea.WithOutput(output))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running login view: %w", err)
	}
	m := final.(LoginModel)
	if m.err != nil {
		return "", m.err
	}
	return m.token, nil
}
