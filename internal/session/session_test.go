package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/history"
	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/remote"
	"github.com/example/pixie/internal/screenshot"
	"github.com/example/pixie/internal/transform"
)

type fakeRemote struct {
	mu       sync.Mutex
	applyErr error
	echo     bool
	applies  []remote.ApplyRequest
	prompts  []remote.PromptRequest
	htmls    []remote.HTMLRequest
}

func (f *fakeRemote) Apply(_ context.Context, req remote.ApplyRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies = append(f.applies, req)
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	if f.echo {
		return req.Image, nil
	}
	return imaging.EncodePNG(imaging.Fill(50, 50, color.RGBA{255, 0, 0, 255}))
}

func (f *fakeRemote) Prompt(_ context.Context, req remote.PromptRequest) (remote.PromptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req)
	return remote.PromptResult{Instructions: "paint it red", Assets: []remote.Asset{}}, nil
}

func (f *fakeRemote) ToHTML(_ context.Context, req remote.HTMLRequest) (remote.HTMLResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.htmls = append(f.htmls, req)
	return remote.HTMLResult{HTMLPath: "/out/page.html", ViewURL: "https://view/page"}, nil
}

type fakeShots struct {
	res screenshot.Result
	err error
	url string
}

func (f *fakeShots) Capture(_ context.Context, url string) (screenshot.Result, error) {
	f.url = url
	return f.res, f.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(imaging.Fill(w, h, color.RGBA{0, 0, 255, 255}))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestSession(t *testing.T) (*Session, *fakeRemote, *clock) {
	t.Helper()
	rem := &fakeRemote{}
	clk := &clock{t: time.UnixMilli(1700000000000)}
	s := New(Config{Remote: rem, Screenshots: &fakeShots{}, Now: clk.now})
	return s, rem, clk
}

func selectSquare(s *Session, b canvas.Box) {
	r, _ := canvas.LookupRatio("square")
	s.WithCanvas(func(c *canvas.Controller) { c.SetSelection(r, b) })
}

func TestUploadLoadsRoot(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.SetViewSize(664, 464)
	if err := s.Upload("shot.png", pngOf(t, 1200, 800)); err != nil {
		t.Fatal(err)
	}
	cur, ok := s.History().Current()
	if !ok || cur.Description != history.DescImageUploaded || s.History().Index() != 0 {
		t.Fatalf("current %+v", cur)
	}
	s.WithCanvas(func(c *canvas.Controller) {
		if c.View.Zoom != 50 {
			t.Errorf("zoom %d", c.View.Zoom)
		}
		if c.View.Scroll != canvas.Pt(-CanvasMargin, -CanvasMargin) {
			t.Errorf("scroll %v", c.View.Scroll)
		}
		if !c.HasImage() {
			t.Error("image size not recorded")
		}
	})
}

func TestUploadRejectsBadFile(t *testing.T) {
	s, _, _ := newTestSession(t)
	err := s.Upload("notes.txt", []byte("hello"))
	if !errors.Is(err, imaging.ErrUnsupportedType) {
		t.Fatalf("got %v", err)
	}
	m, ok := s.Message()
	if !ok || m.Kind != MessageError || m.Text != "Please upload a valid image file (JPEG, PNG, GIF, or WebP)" {
		t.Fatalf("message %+v", m)
	}
	if s.History().Len() != 0 {
		t.Fatal("history must stay empty")
	}
}

func TestSubmitScenario(t *testing.T) {
	s, rem, clk := newTestSession(t)
	if err := s.Upload("a.png", pngOf(t, 200, 100)); err != nil {
		t.Fatal(err)
	}
	selectSquare(s, canvas.Box{X: 10, Y: 10, Width: 50, Height: 50})

	s.SetPrompt("make sky blue")
	s.SetReference(pngOf(t, 4, 4))
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.History().Index() != 1 || s.History().Len() != 2 {
		t.Fatalf("index %d len %d", s.History().Index(), s.History().Len())
	}
	if s.Prompt() != "" || s.Reference() != nil {
		t.Error("prompt and reference must be cleared")
	}
	if _, ok := s.Selection(); !ok {
		t.Error("selection must survive a submit")
	}
	if m, ok := s.Message(); !ok || m.Kind != MessageSuccess {
		t.Errorf("message %+v", m)
	}
	if len(rem.applies) != 1 || rem.applies[0].AspectRatio != "1:1" || rem.applies[0].Reference == nil {
		t.Errorf("apply %+v", rem.applies)
	}

	cur, _ := s.History().Current()
	img, err := imaging.Decode(cur.Image)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 || img.RGBAAt(20, 20) != (color.RGBA{255, 0, 0, 255}) || img.RGBAAt(100, 80) != (color.RGBA{0, 0, 255, 255}) {
		t.Fatal("composite not applied to the selection only")
	}

	if !s.Undo() || s.History().Index() != 0 {
		t.Fatal("undo")
	}
	clk.advance(time.Second)
	s.SetPrompt("make it green")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.History().Len() != 2 || s.History().Index() != 1 {
		t.Fatalf("len %d index %d", s.History().Len(), s.History().Index())
	}
	cur, _ = s.History().Current()
	if cur.Prompt != "make it green" {
		t.Fatalf("prompt %q", cur.Prompt)
	}
}

func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(2 * y), 0, 255})
		}
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSubmitDefaultSquareOverhangingImage(t *testing.T) {
	s, rem, clk := newTestSession(t)
	rem.echo = true
	// 200x100 fits at 100% in this view and its centre lands on the image
	// centre, so the default square hangs 50px past each side and 100px
	// past the top and bottom.
	s.SetViewSize(264, 164)
	src := gradientPNG(t, 200, 100)
	if err := s.Upload("a.png", src); err != nil {
		t.Fatal(err)
	}
	if !s.SelectAspectRatio("square") {
		t.Fatal("square not selected")
	}
	box, ok := s.Selection()
	if !ok || box != (canvas.Box{X: -50, Y: -100, Width: 300, Height: 300}) {
		t.Fatalf("default box %v", box)
	}

	s.SetPrompt("make sky blue")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rem.applies) != 1 || rem.applies[0].AspectRatio != "1:1" {
		t.Fatalf("apply %+v", rem.applies)
	}
	w, h, err := imaging.Size(rem.applies[0].Image)
	if err != nil || w != 300 || h != 300 {
		t.Fatalf("region sent %dx%d %v", w, h, err)
	}
	if s.History().Index() != 1 || s.History().Len() != 2 {
		t.Fatalf("index %d len %d", s.History().Index(), s.History().Len())
	}

	want, err := imaging.Decode(src)
	if err != nil {
		t.Fatal(err)
	}
	cur, _ := s.History().Current()
	got, err := imaging.Decode(cur.Image)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != want.Bounds() {
		t.Fatalf("bounds %v", got.Bounds())
	}
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if got.RGBAAt(x, y) != want.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.RGBAAt(x, y), want.RGBAAt(x, y))
			}
		}
	}

	if !s.Undo() || s.History().Index() != 0 {
		t.Fatal("undo")
	}
	clk.advance(time.Second)
	s.SetPrompt("add clouds")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.History().Len() != 2 || s.History().Index() != 1 {
		t.Fatalf("len %d index %d", s.History().Len(), s.History().Index())
	}
	if cur, _ := s.History().Current(); cur.Prompt != "add clouds" {
		t.Fatalf("prompt %q", cur.Prompt)
	}
}

func TestSubmitErrorKeepsHistory(t *testing.T) {
	s, rem, clk := newTestSession(t)
	rem.applyErr = &remote.APIError{Status: 429, Detail: "quota exceeded"}
	if err := s.Upload("a.png", pngOf(t, 200, 100)); err != nil {
		t.Fatal(err)
	}
	selectSquare(s, canvas.Box{X: 0, Y: 0, Width: 60, Height: 60})
	s.SetPrompt("add stars")
	if err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.History().Len() != 1 {
		t.Fatal("history changed on error")
	}
	if s.Prompt() != "add stars" {
		t.Error("prompt must survive a failure")
	}
	m, ok := s.Message()
	if !ok || m.Text != "Quota exceeded" {
		t.Fatalf("message %+v", m)
	}
	clk.advance(ErrorDuration + time.Millisecond)
	if _, ok := s.Message(); ok {
		t.Fatal("error message should expire")
	}
}

func TestSubmitMissingInputIsQuiet(t *testing.T) {
	s, rem, _ := newTestSession(t)
	if err := s.Submit(context.Background()); !errors.Is(err, transform.ErrMissingInput) {
		t.Fatalf("got %v", err)
	}
	if _, ok := s.Message(); ok {
		t.Error("no message expected")
	}
	if len(rem.applies) != 0 {
		t.Error("no request expected")
	}
}

func TestViewPrompt(t *testing.T) {
	s, rem, _ := newTestSession(t)
	if _, err := s.ViewPrompt(context.Background()); err == nil {
		t.Fatal("expected error without image")
	}
	if m, _ := s.Message(); m.Text != "No image available to view prompt for" {
		t.Fatalf("message %q", m.Text)
	}

	s.Upload("a.png", pngOf(t, 200, 100))
	selectSquare(s, canvas.Box{X: 0, Y: 0, Width: 60, Height: 60})
	s.SetPrompt("sunset")
	if err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		res, err := s.ViewPrompt(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Instructions != "paint it red" {
			t.Fatalf("result %+v", res)
		}
	}
	if len(rem.prompts) != 1 {
		t.Fatalf("prompt calls %d, want 1 (cached)", len(rem.prompts))
	}
	got := rem.prompts[0]
	if got.RequestID != rem.applies[0].RequestID || got.Prompt != "sunset" {
		t.Errorf("request %+v", got)
	}
}

func TestGenerateCode(t *testing.T) {
	s, rem, _ := newTestSession(t)
	if _, err := s.GenerateCode(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m, _ := s.Message(); m.Text != "Please import an image first" {
		t.Fatalf("message %q", m.Text)
	}
	s.Upload("a.png", pngOf(t, 20, 20))
	res, err := s.GenerateCode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.HTMLPath != "/out/page.html" {
		t.Fatalf("res %+v", res)
	}
	if !strings.HasPrefix(rem.htmls[0].RequestID, "pixie_code_") || rem.htmls[0].Model != remote.DefaultCodeModel {
		t.Errorf("request %+v", rem.htmls[0])
	}
	cur, _ := s.History().Current()
	if cur.GeneratedCodeURL != "/out/page.html" || cur.ViewURL != "https://view/page" {
		t.Errorf("entry %+v", cur)
	}
}

func TestExport(t *testing.T) {
	s, _, clk := newTestSession(t)
	dir := t.TempDir()
	if _, err := s.Export(dir); err == nil {
		t.Fatal("expected error")
	}
	s.Upload("a.png", pngOf(t, 10, 10))
	path, err := s.Export(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "pixie-export-"+millis(clk.now())+".png")
	if path != want {
		t.Fatalf("path %s want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if w, h, err := imaging.Size(data); err != nil || w != 10 || h != 10 {
		t.Fatalf("exported %dx%d %v", w, h, err)
	}
}

func TestClipboard(t *testing.T) {
	var clip []byte
	oldW, oldR := writeClipboardPNG, readClipboardPNG
	writeClipboardPNG = func(b []byte) error { clip = b; return nil }
	readClipboardPNG = func() ([]byte, error) { return clip, nil }
	t.Cleanup(func() { writeClipboardPNG, readClipboardPNG = oldW, oldR })

	s, _, _ := newTestSession(t)
	s.Upload("a.png", pngOf(t, 8, 8))
	if err := s.CopyImage(); err != nil {
		t.Fatal(err)
	}
	if len(clip) == 0 {
		t.Fatal("nothing copied")
	}
	if err := s.PasteReference(); err != nil {
		t.Fatal(err)
	}
	if s.Reference() == nil {
		t.Fatal("reference not set")
	}

	readClipboardPNG = func() ([]byte, error) { return nil, errors.New("clipboard does not contain image data") }
	if err := s.PasteReference(); err == nil {
		t.Fatal("expected error")
	}
	if m, _ := s.Message(); m.Text != "Clipboard does not contain image data" {
		t.Fatalf("message %q", m.Text)
	}
}

func TestImportWebsite(t *testing.T) {
	s, _, _ := newTestSession(t)
	shots := &fakeShots{}
	s.cfg.Screenshots = shots

	if err := s.ImportWebsite(context.Background(), "   "); err == nil {
		t.Fatal("expected error")
	}
	if m, _ := s.Message(); m.Text != "Please enter a valid URL (e.g., https://example.com)" {
		t.Fatalf("message %q", m.Text)
	}

	shots.err = &screenshot.Error{Status: 400, Message: "Could not resolve the website URL"}
	if err := s.ImportWebsite(context.Background(), "nowhere.invalid"); err == nil {
		t.Fatal("expected error")
	}
	if m, _ := s.Message(); m.Text != "Could not resolve the website URL" {
		t.Fatalf("message %q", m.Text)
	}

	shots.err = nil
	shots.res = screenshot.Result{
		Success:    true,
		Screenshot: imaging.DataURL("image/png", pngOf(t, 300, 200)),
		Metadata:   &screenshot.Metadata{URL: "https://example.com"},
	}
	if err := s.ImportWebsite(context.Background(), "example.com/"); err != nil {
		t.Fatal(err)
	}
	if shots.url != "https://example.com" {
		t.Errorf("captured %q", shots.url)
	}
	cur, _ := s.History().Current()
	if cur.Description != history.DescWebsiteImported {
		t.Errorf("description %q", cur.Description)
	}
	if md, ok := s.Metadata(); !ok || md.URL != "https://example.com" {
		t.Errorf("metadata %+v", md)
	}
}

func TestClearResetsEverything(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.Upload("a.png", pngOf(t, 100, 100))
	selectSquare(s, canvas.Box{Width: 60, Height: 60})
	s.SetPrompt("x")
	s.Clear()
	if s.History().Len() != 0 || s.Prompt() != "" {
		t.Fatal("not cleared")
	}
	s.WithCanvas(func(c *canvas.Controller) {
		if _, ok := c.Selection(); ok || c.HasImage() {
			t.Error("canvas not reset")
		}
	})
}

func TestVoicePreconditions(t *testing.T) {
	s, _, _ := newTestSession(t)
	s.cfg.VoiceCredentials = true
	if err := s.VoicePreconditions().Check(); err == nil {
		t.Fatal("expected not ready")
	}
	s.Upload("a.png", pngOf(t, 100, 100))
	selectSquare(s, canvas.Box{Width: 60, Height: 60})
	if err := s.VoicePreconditions().Check(); err != nil {
		t.Fatal(err)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&remote.APIError{Detail: "bad prompt"}, "Bad prompt"},
		{transform.ErrBusy, "A transformation is already in progress"},
		{history.ErrEntryNotFound, "The canvas changed before the transformation finished"},
		{context.Canceled, "Cancelled"},
		{fmt.Errorf("%w: %w", errInvalidURL, screenshot.ErrMissingURL), "Please enter a valid URL (e.g., https://example.com)"},
		{errCaptureFailed, "Failed to capture website screenshot"},
		{errNoExport, "No image to export"},
		{&screenshot.Error{Status: 503, Message: "Connection to website was refused"}, "Connection to website was refused"},
		{screenshot.ErrInvalidResponse, "Invalid response format from screenshot service"},
		{errors.New("api request failed: 500 Internal Server Error"), "Api request failed: 500 Internal Server Error"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	for err := range statusText {
		if s := err.Error(); s != strings.ToLower(s[:1])+s[1:] {
			t.Errorf("error string %q must start lowercase", s)
		}
	}
}

func TestPasteImageAndReport(t *testing.T) {
	oldR := readClipboardPNG
	t.Cleanup(func() { readClipboardPNG = oldR })
	s, _, _ := newTestSession(t)
	readClipboardPNG = func() ([]byte, error) { return pngOf(t, 6, 4), nil }
	if err := s.PasteImage(); err != nil {
		t.Fatal(err)
	}
	if cur, ok := s.History().Current(); !ok || cur.Description != history.DescImageUploaded {
		t.Fatalf("current %+v", cur)
	}

	s.Report("voice", errors.New("microphone unavailable"))
	if m, ok := s.Message(); !ok || m.Kind != MessageError || m.Text != "Microphone unavailable" {
		t.Fatalf("message %+v", m)
	}
	s.DismissMessage()
	s.Report("voice", nil)
	if _, ok := s.Message(); ok {
		t.Fatal("nil error produced a message")
	}
}
