package apiclient

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

	"github.com/brk3/steady/pkg/habit"
	"github.com/brk3/steady/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	APIKey  string
	// Timezone is sent with every request so the server evaluates "today"
	// in the caller's zone.
	Timezone string
	HTTP     *http.Client
}

func New(base, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.Timezone != "" {
		req.Header.Set("X-Timezone", c.Timezone)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%s %s: %s %s", method, path, res.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Summary fetches the derived view of every active habit.
func (c *Client) Summary(ctx context.Context) (habit.Summary, error) {
	var out habit.Summary
	err := c.do(ctx, http.MethodGet, "/habits/", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) AddCompletion(ctx context.Context, habitID string) (habit.Completion, error) {
	var out habit.Completion
	err := c.do(ctx, http.MethodPost, "/habits/"+url.PathEscape(habitID)+"/completions", nil, http.StatusCreated, &out)
	return out, err
}

func (c *Client) Version(ctx context.Context) (versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	err := c.do(ctx, http.MethodGet, "/version", nil, http.StatusOK, &out)
	return out, err
}
