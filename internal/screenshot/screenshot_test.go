package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"example.com":               "https://example.com",
		"  example.com/path///  ":   "https://example.com/path",
		"http://example.com/":       "http://example.com",
		"https://exa mple.com":      "https://example.com",
		"https://example.com/a?b=c": "https://example.com/a?b=c",
	}
	for in, want := range tests {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com":   true,
		"http://localhost:3000": true,
		"ftp://example.com":     false,
		"https://":              false,
		"not a url":             false,
		"javascript:alert(1)":   false,
	}
	for in, want := range tests {
		if got := ValidateURL(in); got != want {
			t.Errorf("ValidateURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrepare(t *testing.T) {
	if _, err := Prepare("   "); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Prepare("ftp://x.y"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v", err)
	}
	got, err := Prepare("example.com/")
	if err != nil || got != "https://example.com" {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    string
		status int
		msg    string
	}{
		{"navigation failed: net::ERR_NAME_NOT_RESOLVED", 400, "Could not resolve the website URL"},
		{"net::ERR_CONNECTION_TIMED_OUT", 504, "Connection to website timed out"},
		{"net::ERR_CONNECTION_REFUSED at x", 503, "Connection to website was refused"},
		{"page returned status code 404", 500, "Page returned status code 404"},
	}
	for _, tt := range tests {
		got := Classify(errors.New(tt.err))
		if got.Status != tt.status || got.Message != tt.msg {
			t.Errorf("Classify(%q) = %d %q", tt.err, got.Status, got.Message)
		}
	}
	sentinels := []struct {
		err    error
		status int
		msg    string
	}{
		{ErrMissingURL, 400, "URL is required"},
		{fmt.Errorf("prepare: %w", ErrInvalidURL), 400, "Please enter a valid URL (e.g., https://example.com)"},
		{errLoadFailed, 500, "Failed to load the page"},
		{errPageTooLarge, 500, "Page content is too large to process"},
	}
	for _, tt := range sentinels {
		got := Classify(tt.err)
		if got.Status != tt.status || got.Message != tt.msg || !errors.Is(got, tt.err) {
			t.Errorf("Classify(%v) = %d %q", tt.err, got.Status, got.Message)
		}
		if s := tt.err.Error(); s != strings.ToLower(s[:1])+s[1:] {
			t.Errorf("error string %q must start lowercase", s)
		}
	}
	pre := &Error{Status: 418, Message: "teapot"}
	if Classify(pre) != pre {
		t.Error("classified errors must pass through")
	}
}

func TestClientCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct{ URL string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.URL != "https://example.com" {
			t.Errorf("url %q", body.URL)
		}
		io.WriteString(w, `{"success":true,"screenshot":"data:image/jpeg;base64,AA==","metadata":{"url":"https://example.com","timestamp":"2025-01-01T00:00:00.000Z","dimensions":{"width":1280,"height":4000}}}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL)
	res, err := c.Capture(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Metadata.Dimensions.Height != 4000 {
		t.Fatalf("result %+v", res)
	}
}

func TestClientCaptureErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server message", 503, `{"error":"Connection to website was refused"}`, "Connection to website was refused"},
		{"no message", 502, `oops`, "Failed to capture screenshot: Bad Gateway"},
		{"missing metadata", 200, `{"success":true,"screenshot":"data:,"}`, "Invalid response format from screenshot service"},
		{"bad json", 200, `{`, "Invalid response format from screenshot service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()
			_, err := NewClient(srv.URL).Capture(context.Background(), "https://example.com")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err).Message; got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientRejectsInvalidURL(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.Capture(context.Background(), "ftp://example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v", err)
	}
}
