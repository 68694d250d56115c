package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"riches/internal/game"
	"riches/internal/store"

	"github.com/google/uuid"
)

// Client speaks the player store's HTTP contract. Transport failures and
// server errors wrap game.ErrRemoteUnavailable; 404 wraps game.ErrPlayerNotFound.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Register(ctx context.Context, username string) (store.Player, error) {
	var out struct {
		Player store.Player `json:"player"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/players", map[string]any{
		"username": username,
	}, &out)
	return out.Player, err
}

func (c *Client) Fetch(ctx context.Context, username string) (store.Record, error) {
	var out store.Record
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players?username="+url.QueryEscape(username), nil, &out)
	return out, err
}

func (c *Client) Roster(ctx context.Context) ([]store.Player, error) {
	var out struct {
		Players []store.Player `json:"players"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players", nil, &out)
	return out.Players, err
}

func (c *Client) Update(ctx context.Context, in store.Update) (store.Player, error) {
	var out struct {
		Player store.Player `json:"player"`
	}
	err := c.jsonRequest(ctx, http.MethodPut, "/v1/players", in, &out)
	return out.Player, err
}

func (c *Client) Healthy(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", game.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s %s: %s", game.ErrPlayerNotFound, method, path, msg)
		}
		return fmt.Errorf("%w: store status %d: %s", game.ErrRemoteUnavailable, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", game.ErrRemoteUnavailable, err)
	}
	return nil
}
