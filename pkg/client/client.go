package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ShenMinX/duallauncher/internal/engine"
	"github.com/ShenMinX/duallauncher/internal/profile"
)

// Client talks to a running duallauncher daemon over its HTTP control API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig points at the default local daemon address.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8088/duallauncher",
		Timeout: 10 * time.Second,
	}
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// IsReachable reports whether the daemon answers on the configured address.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Statuses fetches snapshots of all configured profiles.
func (c *Client) Statuses(ctx context.Context) ([]engine.Status, error) {
	var out []engine.Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status fetches one profile's snapshot.
func (c *Client) Status(ctx context.Context, name string) (engine.Status, error) {
	var out engine.Status
	err := c.do(ctx, http.MethodGet, "/status", url.Values{"name": {name}}, nil, &out)
	return out, err
}

// Start initiates one profile's launch.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/start", url.Values{"name": {name}}, nil, nil)
}

// Stop stops one profile.
func (c *Client) Stop(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/stop", url.Values{"name": {name}}, nil, nil)
}

// StartAll launches everything eligible.
func (c *Client) StartAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/start-all", nil, nil, nil)
}

// StopAll stops everything.
func (c *Client) StopAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stop-all", nil, nil, nil)
}

// StartGroups sequences the named groups.
func (c *Client) StartGroups(ctx context.Context, groups ...string) error {
	return c.do(ctx, http.MethodPost, "/groups/start", url.Values{"name": groups}, nil, nil)
}

// StopGroup stops a whole group.
func (c *Client) StopGroup(ctx context.Context, group string) error {
	return c.do(ctx, http.MethodPost, "/groups/stop", url.Values{"name": {group}}, nil, nil)
}

// Profiles lists the configured profiles.
func (c *Client) Profiles(ctx context.Context) ([]profile.Profile, error) {
	var out []profile.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutProfile creates or replaces a profile on the daemon.
func (c *Client) PutProfile(ctx context.Context, p profile.Profile) error {
	return c.do(ctx, http.MethodPost, "/profiles", nil, p, nil)
}

// DeleteProfile stops and removes a profile.
func (c *Client) DeleteProfile(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/profiles", url.Values{"name": {name}}, nil, nil)
}

// Events fetches the daemon's recent activity feed.
func (c *Client) Events(ctx context.Context) ([]engine.Event, error) {
	var out []engine.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type errorResp struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var er errorResp
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			return fmt.Errorf("daemon: %s", er.Error)
		}
		return fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
