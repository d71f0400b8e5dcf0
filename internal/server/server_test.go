package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/pixie/internal/screenshot"
)

type fakeCapture struct {
	got string
	res screenshot.Result
	err error
}

func (f *fakeCapture) Capture(_ context.Context, url string) (screenshot.Result, error) {
	f.got = url
	return f.res, f.err
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, New(&fakeCapture{}, nil), http.MethodGet, "/health", "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("%d %s", rec.Code, rec.Body)
	}
}

func TestScreenshotSuccess(t *testing.T) {
	f := &fakeCapture{res: screenshot.Result{
		Success:    true,
		Screenshot: "data:image/jpeg;base64,AA==",
		Metadata:   &screenshot.Metadata{URL: "https://example.com"},
	}}
	rec := do(t, New(f, nil), http.MethodPost, "/api/screenshot", `{"url":"https://example.com"}`)
	if rec.Code != 200 {
		t.Fatalf("status %d", rec.Code)
	}
	var res screenshot.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Metadata.URL != "https://example.com" || f.got != "https://example.com" {
		t.Fatalf("result %+v", res)
	}
}

func TestScreenshotErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"missing url", `{}`, nil, 400, "URL is required"},
		{"bad body", `{`, nil, 400, "URL is required"},
		{"dns", `{"url":"https://nope.invalid"}`, errors.New("net::ERR_NAME_NOT_RESOLVED"), 400, "Could not resolve the website URL"},
		{"refused", `{"url":"https://x"}`, errors.New("net::ERR_CONNECTION_REFUSED"), 503, "Connection to website was refused"},
		{"other", `{"url":"https://x"}`, errors.New("page returned status code 404"), 500, "Page returned status code 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(&fakeCapture{err: tt.err}, nil), http.MethodPost, "/api/screenshot", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] != tt.msg {
				t.Fatalf("error %q, want %q", body["error"], tt.msg)
			}
		})
	}
}
