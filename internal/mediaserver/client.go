package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"

	"github.com/waabox/seerrdeck/internal/domain"
)

var log = logrus.WithField("module", "mediaserver")

// Client talks to an Overseerr-compatible media request server.
// Sign-in keeps the server's session cookie in the client's cookie jar.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the server at baseURL.
// Pass a nil client to use one with a 15s timeout. A cookie jar is attached when the client
// does not carry one.
func NewClient(baseURL string, client *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("media server URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		client.Jar = jar
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

type statusResponse struct {
	Version         string `json:"version"`
	CommitTag       string `json:"commitTag"`
	UpdateAvailable bool   `json:"updateAvailable"`
}

type userResponse struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PlexUsername string `json:"plexUsername"`
	DisplayName  string `json:"displayName"`
	Permissions  int    `json:"permissions"`
	Avatar       string `json:"avatar"`
	RequestCount int    `json:"requestCount"`
}

func (u userResponse) toUser() domain.User {
	return domain.User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PlexUsername: u.PlexUsername,
		DisplayName:  u.DisplayName,
		Permissions:  u.Permissions,
		Avatar:       u.Avatar,
		RequestCount: u.RequestCount,
	}
}

// Status returns the server's version. Used to check a configured address before sign-in.
func (c *Client) Status(ctx context.Context) (domain.ServerStatus, error) {
	var raw statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &raw); err != nil {
		return domain.ServerStatus{}, err
	}
	if raw.Version == "" {
		return domain.ServerStatus{}, fmt.Errorf("media server status: missing version")
	}
	return domain.ServerStatus{
		Version:         raw.Version,
		CommitTag:       raw.CommitTag,
		UpdateAvailable: raw.UpdateAvailable,
	}, nil
}

// SignInWithPlex exchanges a Plex token for a media server session.
func (c *Client) SignInWithPlex(ctx context.Context, plexToken string) (domain.User, error) {
	if plexToken == "" {
		return domain.User{}, fmt.Errorf("plex token is required")
	}
	var raw userResponse
	body := map[string]string{"authToken": plexToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/plex", body, &raw); err != nil {
		return domain.User{}, err
	}
	user := raw.toUser()
	log.WithField("user_id", user.ID).Info("signed in with plex")
	return user, nil
}

// Me returns the user of the current session.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var raw userResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &raw); err != nil {
		return domain.User{}, err
	}
	return raw.toUser(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("media server API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("media server API error: %s", resp.Status)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
