// Package remote talks to the image transformation service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Defaults used when the configuration leaves them empty.
const (
	DefaultBaseURL    = "https://nexus-173203641979.us-central1.run.app"
	DefaultImageModel = "gemini-2.5-flash-image-preview"
	DefaultCodeModel  = "gemini-2.5-pro"

	validationModel = "gemini-2.5-flash-lite"
	apiKeyHeader    = "X-API-Key"
)

// ErrMalformedResponse is returned when a successful response lacks the
// payload the caller needs.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string { return e.Detail }

// Client calls the transformation service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for baseURL authenticating with apiKey. An empty
// baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 3 * time.Minute},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ApplyRequest is one regional transformation.
type ApplyRequest struct {
	Prompt      string
	Image       []byte // PNG of the selected region
	AspectRatio string // "<ratio>:1"
	Model       string
	RequestID   string
	Reference   []byte
}

// Apply sends the selected region and returns the transformed region bytes.
func (c *Client) Apply(ctx context.Context, req ApplyRequest) ([]byte, error) {
	form := newForm()
	form.field("prompt", strings.TrimSpace(req.Prompt))
	form.file("image", "selection.png", req.Image)
	form.field("aspect_ratio", req.AspectRatio)
	form.field("model", req.Model)
	form.field("request_id", req.RequestID)
	form.field("numberOfImages", "1")
	if len(req.Reference) > 0 {
		form.file("reference_image", "reference.png", req.Reference)
	}
	c.logger.Info("remote: apply", "request_id", req.RequestID, "aspect_ratio", req.AspectRatio, "image_bytes", len(req.Image))
	resp, err := c.post(ctx, "/v1/images/apply", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, true); err != nil {
		c.logger.Warn("remote: apply failed", "request_id", req.RequestID, "status", resp.StatusCode, "error", err)
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read apply response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("apply: empty image: %w", ErrMalformedResponse)
	}
	return data, nil
}

// Asset is a file returned with the reconstructed prompt.
type Asset struct {
	Filename string `json:"filename,omitempty"`
	Data     string `json:"data,omitempty"`
}

// PromptRequest asks the service to explain how an image was produced.
type PromptRequest struct {
	RequestID string
	Image     []byte
	Prompt    string
	Model     string
}

// PromptResult is the reconstructed prompt.
type PromptResult struct {
	Instructions string  `json:"instructions"`
	Assets       []Asset `json:"assets"`
}

// Prompt fetches the instructions behind a history entry.
func (c *Client) Prompt(ctx context.Context, req PromptRequest) (PromptResult, error) {
	form := newForm()
	form.field("request_id", req.RequestID)
	form.file("image", "image.png", req.Image)
	if req.Prompt != "" {
		form.field("prompt", req.Prompt)
		form.field("model", req.Model)
	}
	resp, err := c.post(ctx, "/v1/images/prompt", form)
	if err != nil {
		return PromptResult{}, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, false); err != nil {
		return PromptResult{}, err
	}
	var res PromptResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return PromptResult{}, fmt.Errorf("decode prompt response: %w", err)
	}
	if res.Instructions == "" {
		res.Instructions = "No instructions available"
	}
	if res.Assets == nil {
		res.Assets = []Asset{}
	}
	return res, nil
}

// HTMLRequest asks for markup reproducing an image.
type HTMLRequest struct {
	RequestID string
	Image     []byte
	Model     string
}

// HTMLResult points at the generated markup.
type HTMLResult struct {
	HTMLPath string `json:"html_path"`
	ViewURL  string `json:"view_url,omitempty"`
}

// ToHTML converts an image into markup hosted by the service.
func (c *Client) ToHTML(ctx context.Context, req HTMLRequest) (HTMLResult, error) {
	form := newForm()
	form.field("request_id", req.RequestID)
	form.file("image", "image.png", req.Image)
	form.field("model", req.Model)
	resp, err := c.post(ctx, "/v1/images/to-html", form)
	if err != nil {
		return HTMLResult{}, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, false); err != nil {
		return HTMLResult{}, err
	}
	var res HTMLResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return HTMLResult{}, fmt.Errorf("decode to-html response: %w", err)
	}
	if res.HTMLPath == "" {
		return HTMLResult{}, fmt.Errorf("no HTML path returned from API: %w", ErrMalformedResponse)
	}
	return res, nil
}

// ValidateKey sends a minimal chat request to check the API key.
func (c *Client) ValidateKey(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"model": validationModel,
		"messages": []map[string]string{
			{"role": "system", "content": "Test"},
			{"role": "user", "content": "test"},
		},
		"max_tokens": 10,
		"stream":     false,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/gemini", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("validate key: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(resp.Body)
	msg := keyErrorMessage(data)
	return &APIError{Status: resp.StatusCode, Detail: msg}
}

func (c *Client) post(ctx context.Context, path string, f *form) (*http.Response, error) {
	body, contentType, err := f.finish()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(apiKeyHeader, c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into an APIError. When detail is
// set, a JSON body's detail field replaces the generic message.
func checkStatus(resp *http.Response, detail bool) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	e := &APIError{
		Status: resp.StatusCode,
		Detail: fmt.Sprintf("API request failed: %d %s", resp.StatusCode, statusText(resp)),
	}
	if !detail {
		return e
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return e
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 || string(body.Detail) == "null" {
		return e
	}
	var s string
	if json.Unmarshal(body.Detail, &s) == nil {
		e.Detail = s
	} else {
		e.Detail = string(body.Detail)
	}
	return e
}

func statusText(resp *http.Response) string {
	// resp.Status is "404 Not Found"
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// keyErrorMessage extracts a readable message from a key validation error
// body, which may carry detail as a string, a list of errors or an object.
func keyErrorMessage(data []byte) string {
	const fallback = "Invalid API key"
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return fallback
	}
	if len(body.Detail) == 0 || string(body.Detail) == "null" {
		if body.Message != "" {
			return body.Message
		}
		return fallback
	}
	var s string
	if json.Unmarshal(body.Detail, &s) == nil {
		return s
	}
	type item struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	pick := func(raw json.RawMessage, it item) string {
		switch {
		case it.Msg != "":
			return it.Msg
		case it.Message != "":
			return it.Message
		}
		return string(raw)
	}
	var list []json.RawMessage
	if json.Unmarshal(body.Detail, &list) == nil {
		parts := make([]string, 0, len(list))
		for _, raw := range list {
			var it item
			_ = json.Unmarshal(raw, &it)
			parts = append(parts, pick(raw, it))
		}
		return strings.Join(parts, ", ")
	}
	var it item
	_ = json.Unmarshal(body.Detail, &it)
	return pick(body.Detail, it)
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(name, filename string, data []byte) {
	if f.err != nil {
		return
	}
	part, err := f.w.CreateFormFile(name, filename)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(data)
}

func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("build form: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
