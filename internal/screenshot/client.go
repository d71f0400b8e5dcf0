package screenshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client requests captures from a remote endpoint serving the same JSON
// contract as the server package.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient returns a client for endpoint, e.g. "http://host:8080/api/screenshot".
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     slog.Default(),
	}
}

// Capture normalizes and validates target, then posts it to the endpoint.
func (c *Client) Capture(ctx context.Context, target string) (Result, error) {
	u, err := Prepare(target)
	if err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(map[string]string{"url": u})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("capture %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			_, text, _ := strings.Cut(resp.Status, " ")
			e.Error = "Failed to capture screenshot: " + text
		}
		c.Logger.Warn("screenshot: remote capture failed", "url", u, "status", resp.StatusCode, "error", e.Error)
		return Result{}, &Error{Status: resp.StatusCode, Message: e.Error}
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, ErrInvalidResponse
	}
	if res.Screenshot == "" || res.Metadata == nil {
		return Result{}, ErrInvalidResponse
	}
	return res, nil
}
