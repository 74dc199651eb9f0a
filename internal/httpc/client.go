// Package httpc is a small client for the affectd operator API with
// timeouts set on every request.
package httpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/replay"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to one affectd instance.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for base, e.g. "http://localhost:8090". A zero
// timeout uses DefaultTimeout.
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   DefaultConnectTimeout,
					KeepAlive: DefaultKeepAlive,
				}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Sessions lists live sessions.
func (c *Client) Sessions(ctx context.Context) ([]pipeline.SessionInfo, error) {
	var out []pipeline.SessionInfo
	err := c.do(ctx, http.MethodGet, "/api/sessions", &out)
	return out, err
}

// Reset asks a session to restore its calibration defaults.
func (c *Client) Reset(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/reset", nil)
}

// Recalibrate asks a session to reset and recapture its reference face.
func (c *Client) Recalibrate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+id+"/recalibrate", nil)
}

// Summary loads the recordings of label on the server and returns the
// full-pass summary.
func (c *Client) Summary(ctx context.Context, label model.Emotion) (replay.Summary, error) {
	var sum replay.Summary
	if err := c.do(ctx, http.MethodPost, "/api/analysis/"+label.String(), nil); err != nil {
		return sum, err
	}
	err := c.do(ctx, http.MethodGet, "/api/analysis/summary", &sum)
	return sum, err
}
