// Package screenshot captures full-page website screenshots, either with a
// local headless browser or through a remote capture endpoint.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrMissingURL is returned for an empty URL.
	ErrMissingURL = errors.New("url is required")
	// ErrInvalidURL is returned for anything but an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url: want an absolute http or https address")
	// ErrInvalidResponse is returned when a capture endpoint omits the
	// screenshot or its metadata.
	ErrInvalidResponse = errors.New("invalid response format from screenshot service")

	errLoadFailed   = errors.New("failed to load the page")
	errPageTooLarge = errors.New("page content is too large to process")
)

// userMessages is the text shown for each sentinel error.
var userMessages = []struct {
	err    error
	status int
	text   string
}{
	{ErrMissingURL, http.StatusBadRequest, "URL is required"},
	{ErrInvalidURL, http.StatusBadRequest, "Please enter a valid URL (e.g., https://example.com)"},
	{ErrInvalidResponse, http.StatusBadGateway, "Invalid response format from screenshot service"},
	{errLoadFailed, http.StatusInternalServerError, "Failed to load the page"},
	{errPageTooLarge, http.StatusInternalServerError, "Page content is too large to process"},
}

// Dimensions is the scrollable size of the captured document.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata describes a capture.
type Metadata struct {
	URL        string     `json:"url"`
	Timestamp  string     `json:"timestamp"`
	Dimensions Dimensions `json:"dimensions"`
}

// Result is the outcome of a capture. Screenshot is a JPEG data URL.
type Result struct {
	Success    bool      `json:"success"`
	Screenshot string    `json:"screenshot"`
	Metadata   *Metadata `json:"metadata"`
}

// Service captures a website.
type Service interface {
	Capture(ctx context.Context, url string) (Result, error)
}

// Error is a capture failure with the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("screenshot: status %d: %s", e.Status, e.Message)
}
func (e *Error) Unwrap() error { return e.Err }

// Classify maps a browser failure onto a user-facing message and status.
func Classify(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return &Error{Status: m.status, Message: m.text, Err: err}
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR_NAME_NOT_RESOLVED"):
		return &Error{Status: http.StatusBadRequest, Message: "Could not resolve the website URL", Err: err}
	case strings.Contains(msg, "net::ERR_CONNECTION_TIMED_OUT"):
		return &Error{Status: http.StatusGatewayTimeout, Message: "Connection to website timed out", Err: err}
	case strings.Contains(msg, "net::ERR_CONNECTION_REFUSED"):
		return &Error{Status: http.StatusServiceUnavailable, Message: "Connection to website was refused", Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Message: capitalize(msg), Err: err}
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

var (
	whitespace    = regexp.MustCompile(`\s+`)
	trailingSlash = regexp.MustCompile(`/+$`)
)

// NormalizeURL strips whitespace, defaults the scheme to https and drops
// trailing slashes.
func NormalizeURL(raw string) string {
	u := whitespace.ReplaceAllString(strings.TrimSpace(raw), "")
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return trailingSlash.ReplaceAllString(u, "")
}

// ValidateURL reports whether raw is an absolute http or https URL.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Prepare normalizes and validates a user-entered URL.
func Prepare(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMissingURL
	}
	u := NormalizeURL(raw)
	if !ValidateURL(u) {
		return "", ErrInvalidURL
	}
	return u, nil
}
