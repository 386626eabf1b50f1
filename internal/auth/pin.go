package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waabox/seerrdeck/internal/domain"
)

const plexDefaultBaseURL = "https://plex.tv"

var log = logrus.WithField("module", "auth")

// pinResource is the plex.tv /api/v2/pins representation. Only the fields this client
// reads are declared.
type pinResource struct {
	ID        *int64  `json:"id"`
	Code      *string `json:"code"`
	ExpiresIn int     `json:"expiresIn"`
	AuthToken *string `json:"authToken"`
}

// PinRequester asks plex.tv for a new strong PIN.
type PinRequester struct {
	baseURL string
	client  *http.Client
}

// NewPinRequester creates a PinRequester.
// Pass an empty baseURL to use plex.tv. Pass a test server URL in tests.
func NewPinRequester(baseURL string, client *http.Client) *PinRequester {
	if baseURL == "" {
		baseURL = plexDefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PinRequester{baseURL: baseURL, client: client}
}

// Request issues POST /api/v2/pins?strong=true. It never retries; every failure is a
// *domain.ProtocolError.
func (r *PinRequester) Request(ctx context.Context, headers Headers) (AuthPin, error) {
	endpoint, err := url.JoinPath(r.baseURL, "/api/v2/pins")
	if err != nil {
		return AuthPin{}, &domain.ProtocolError{Op: "request pin", Err: fmt.Errorf("building URL: %w", err)}
	}
	endpoint += "?strong=true"

	var raw pinResource
	if err := doPlex(ctx, r.client, http.MethodPost, endpoint, headers, "request pin", &raw); err != nil {
		return AuthPin{}, err
	}
	if raw.ID == nil || raw.Code == nil || *raw.ID <= 0 || *raw.Code == "" {
		return AuthPin{}, &domain.ProtocolError{Op: "request pin", Err: errors.New("response is missing id or code")}
	}
	pin := AuthPin{
		ID:        *raw.ID,
		Code:      *raw.Code,
		ExpiresIn: time.Duration(raw.ExpiresIn) * time.Second,
	}
	log.WithFields(logrus.Fields{"pin_id": pin.ID, "expires_in": pin.ExpiresIn}).Debug("pin issued")
	return pin, nil
}

// doPlex performs one request against plex.tv and decodes a 2xx JSON body into target.
// Transport failures, non-2xx statuses and undecodable bodies become *domain.ProtocolError.
func doPlex(ctx context.Context, client *http.Client, method, endpoint string, headers Headers, op string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return &domain.ProtocolError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	headers.Apply(req)

	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).WithField("op", op).Debug("error sending request")
		return &domain.ProtocolError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		log.WithField("op", op).WithField("status", resp.StatusCode).Debug("error response from plex.tv")
		return &domain.ProtocolError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		log.WithError(err).WithField("op", op).Debug("error decoding plex.tv response")
		return &domain.ProtocolError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func pinURL(baseURL string, id int64) (string, error) {
	return url.JoinPath(baseURL, "/api/v2/pins", strconv.FormatInt(id, 10))
}
