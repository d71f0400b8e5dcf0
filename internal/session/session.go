// Package session holds the editing state of one canvas and is the action
// boundary between user input and the transformation pipeline. Every
// action turns failures into a single message for display.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/clipboard"
	"github.com/example/pixie/internal/history"
	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/notify"
	"github.com/example/pixie/internal/remote"
	"github.com/example/pixie/internal/screenshot"
	"github.com/example/pixie/internal/transform"
	"github.com/example/pixie/internal/voice"
)

// Message display durations.
const (
	ErrorDuration   = 5 * time.Second
	SuccessDuration = 3 * time.Second
)

// CanvasMargin is the screen offset of the image's top-left corner after an
// import.
const CanvasMargin = 32

var (
	errInvalidURL     = errors.New("invalid website url")
	errCaptureFailed  = errors.New("screenshot service returned no image")
	errNoImage        = errors.New("no image loaded")
	errNoExport       = errors.New("no image to export")
	errNoPromptSource = errors.New("no image to view the prompt for")
)

// statusText is the status line shown for the session's own errors.
var statusText = map[error]string{
	errInvalidURL:     "Please enter a valid URL (e.g., https://example.com)",
	errCaptureFailed:  "Failed to capture website screenshot",
	errNoImage:        "Please import an image first",
	errNoExport:       "No image to export",
	errNoPromptSource: "No image available to view prompt for",
}

// clipboard access, replaced in tests
var (
	writeClipboardPNG = clipboard.WritePNG
	readClipboardPNG  = clipboard.ReadPNG
)

// Remote is the part of the service API the session uses.
type Remote interface {
	transform.Applier
	Prompt(ctx context.Context, req remote.PromptRequest) (remote.PromptResult, error)
	ToHTML(ctx context.Context, req remote.HTMLRequest) (remote.HTMLResult, error)
}

// Config wires a Session.
type Config struct {
	Remote      Remote
	Screenshots screenshot.Service
	Notifier    *notify.Notifier
	ImageModel  string
	CodeModel   string
	// VoiceCredentials reports whether a speech provider key is present.
	VoiceCredentials bool

	Now    func() time.Time
	Logger *slog.Logger
}

// MessageKind distinguishes errors from confirmations.
type MessageKind int

const (
	MessageError MessageKind = iota
	MessageSuccess
)

// Message is a transient status line.
type Message struct {
	Text  string
	Kind  MessageKind
	Until time.Time
}

// Session is one editing canvas. It is safe for concurrent use.
type Session struct {
	cfg      Config
	history  *history.Store
	pipeline *transform.Pipeline

	mu          sync.Mutex
	canvas      *canvas.Controller
	viewSize    canvas.Point
	prompt      string
	reference   []byte
	message     Message
	promptCache map[string]remote.PromptResult // by entry id
	metadata    *screenshot.Metadata
}

// New returns an empty session.
func New(cfg Config) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = remote.DefaultImageModel
	}
	if cfg.CodeModel == "" {
		cfg.CodeModel = remote.DefaultCodeModel
	}
	h := history.NewStore()
	return &Session{
		cfg:     cfg,
		history: h,
		pipeline: &transform.Pipeline{
			Client:  cfg.Remote,
			History: h,
			Now:     cfg.Now,
			Logger:  cfg.Logger,
		},
		canvas:      canvas.NewController(),
		viewSize:    canvas.Pt(1280, 800),
		promptCache: make(map[string]remote.PromptResult),
	}
}

// History exposes the store for rendering and listeners.
func (s *Session) History() *history.Store { return s.history }

// Busy reports whether a transformation is running.
func (s *Session) Busy() bool { return s.pipeline.Busy() }

// WithCanvas runs fn with exclusive access to the canvas controller.
func (s *Session) WithCanvas(fn func(c *canvas.Controller)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.canvas)
}

// SetViewSize records the visible canvas size in screen pixels.
func (s *Session) SetViewSize(w, h int) {
	s.mu.Lock()
	s.viewSize = canvas.Pt(float64(w), float64(h))
	s.mu.Unlock()
}

// Metadata returns the capture details of the last website import.
func (s *Session) Metadata() (screenshot.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata == nil {
		return screenshot.Metadata{}, false
	}
	return *s.metadata, true
}

// Message returns the status line if it has not expired.
func (s *Session) Message() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message.Text == "" || s.cfg.Now().After(s.message.Until) {
		return Message{}, false
	}
	return s.message, true
}

// DismissMessage clears the status line.
func (s *Session) DismissMessage() {
	s.mu.Lock()
	s.message = Message{}
	s.mu.Unlock()
}

func (s *Session) succeed(text string) {
	s.mu.Lock()
	s.message = Message{Text: text, Kind: MessageSuccess, Until: s.cfg.Now().Add(SuccessDuration)}
	s.mu.Unlock()
}

// fail records err as the status line and returns it unchanged.
func (s *Session) fail(action string, err error) error {
	msg := UserMessage(err)
	s.cfg.Logger.Warn("session: "+action+" failed", "error", err)
	s.mu.Lock()
	s.message = Message{Text: msg, Kind: MessageError, Until: s.cfg.Now().Add(ErrorDuration)}
	s.mu.Unlock()
	s.cfg.Notifier.Error(msg)
	return err
}

// Report shows err as the status line for a failure outside the session's
// own actions, such as starting voice mode.
func (s *Session) Report(action string, err error) {
	if err != nil {
		_ = s.fail(action, err)
	}
}

// UserMessage converts any action error into one display string.
func UserMessage(err error) string {
	var apiErr *remote.APIError
	var shotErr *screenshot.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return capitalize(apiErr.Detail)
	case errors.As(err, &shotErr):
		return shotErr.Message
	case errors.Is(err, transform.ErrBusy):
		return "A transformation is already in progress"
	case errors.Is(err, transform.ErrMissingInput):
		return "Please select an area and enter a prompt"
	case errors.Is(err, history.ErrEntryNotFound):
		return "The canvas changed before the transformation finished"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out"
	}
	for target, text := range statusText {
		if errors.Is(err, target) {
			return text
		}
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// ImportWebsite captures url and loads it as a new root entry.
func (s *Session) ImportWebsite(ctx context.Context, url string) error {
	target, err := screenshot.Prepare(url)
	if err != nil {
		return s.fail("import", fmt.Errorf("%w: %w", errInvalidURL, err))
	}
	res, err := s.cfg.Screenshots.Capture(ctx, target)
	if err != nil {
		return s.fail("import", err)
	}
	if !res.Success || res.Screenshot == "" {
		return s.fail("import", errCaptureFailed)
	}
	_, data, err := imaging.ParseDataURL(res.Screenshot)
	if err != nil {
		return s.fail("import", fmt.Errorf("screenshot payload: %w", err))
	}
	if err := s.loadRoot(data, history.DescWebsiteImported); err != nil {
		return s.fail("import", err)
	}
	s.mu.Lock()
	s.metadata = res.Metadata
	s.mu.Unlock()
	s.cfg.Logger.Info("session: website imported", "url", target, "history_index", s.history.Index())
	return nil
}

// Upload validates a local image file and loads it as a new root entry.
func (s *Session) Upload(name string, data []byte) error {
	mediaType := ""
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		mediaType = sniffed
	}
	if err := imaging.ValidateUpload(name, mediaType, len(data)); err != nil {
		return s.fail("upload", err)
	}
	if err := s.loadRoot(data, history.DescImageUploaded); err != nil {
		return s.fail("upload", err)
	}
	s.mu.Lock()
	s.metadata = nil
	s.mu.Unlock()
	s.cfg.Logger.Info("session: image uploaded", "name", name, "history_index", s.history.Index())
	return nil
}

// loadRoot appends a root entry after the current one and fits it to the
// view.
func (s *Session) loadRoot(data []byte, desc string) error {
	w, h, err := imaging.Size(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.canvas.SetImageSize(w, h)
	s.canvas.View.SetZoom(canvas.FitZoom(w, h, int(s.viewSize.X), int(s.viewSize.Y)))
	s.canvas.View.Scroll = canvas.Pt(-CanvasMargin, -CanvasMargin)
	s.mu.Unlock()
	s.history.Append(history.NewImport(data, desc, s.cfg.Now()))
	return nil
}

// SetPrompt replaces the prompt text.
func (s *Session) SetPrompt(p string) {
	s.mu.Lock()
	s.prompt = p
	s.mu.Unlock()
}

// Prompt returns the prompt text.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// SetReference attaches an image that guides the next transformation.
// nil removes it.
func (s *Session) SetReference(data []byte) error {
	if data != nil {
		if _, _, err := imaging.Size(data); err != nil {
			return s.fail("reference", fmt.Errorf("reference image: %w", err))
		}
	}
	s.mu.Lock()
	s.reference = data
	s.mu.Unlock()
	return nil
}

// Reference returns the attached reference image, if any.
func (s *Session) Reference() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reference
}

// SelectAspectRatio toggles the ratio with the given id and reports whether
// it is selected afterwards.
func (s *Session) SelectAspectRatio(id string) bool {
	r, ok := canvas.LookupRatio(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.SelectAspectRatio(r, s.viewSize)
}

// snapshot captures the pipeline input from the current state.
func (s *Session) snapshot() transform.Snapshot {
	cur, _ := s.history.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := transform.Snapshot{
		Image:     cur.Image,
		BaseID:    cur.ID,
		Prompt:    s.prompt,
		Reference: s.reference,
		Model:     s.cfg.ImageModel,
	}
	if b, ok := s.canvas.Selection(); ok {
		snap.Box = b
	}
	if r, ok := s.canvas.AspectRatio(); ok {
		snap.Ratio = r
	}
	return snap
}

// Selection returns the current box.
func (s *Session) Selection() (canvas.Box, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Selection()
}

// Ready reports whether Submit has everything it needs.
func (s *Session) Ready() bool {
	snap := s.snapshot()
	return len(snap.Image) > 0 && !snap.Box.Empty() && snap.Ratio.ID != "" && strings.TrimSpace(snap.Prompt) != ""
}

// Submit runs the transformation on the current selection. On success the
// prompt and reference are cleared; the box and ratio stay for the next
// edit.
func (s *Session) Submit(ctx context.Context) error {
	snap := s.snapshot()
	entry, err := s.pipeline.Run(ctx, snap)
	if errors.Is(err, transform.ErrMissingInput) {
		return err
	}
	if err != nil {
		return s.fail("transform", err)
	}
	s.mu.Lock()
	if strings.TrimSpace(s.prompt) == strings.TrimSpace(snap.Prompt) {
		s.prompt = ""
	}
	s.reference = nil
	s.mu.Unlock()
	s.succeed("Image transformation completed!")
	s.cfg.Notifier.Transform(entry.Prompt, "")
	return nil
}

// Transform sets prompt and submits it. It is the voice loop's entry into
// the pipeline.
func (s *Session) Transform(ctx context.Context, prompt string) error {
	s.SetPrompt(prompt)
	return s.Submit(ctx)
}

// VoicePreconditions reports what live voice mode needs.
func (s *Session) VoicePreconditions() voice.Preconditions {
	_, hasImage := s.history.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hasBox := s.canvas.Selection()
	_, hasRatio := s.canvas.AspectRatio()
	return voice.Preconditions{
		HasCredentials: s.cfg.VoiceCredentials,
		HasImage:       hasImage,
		HasSelection:   hasBox && hasRatio,
	}
}

// Undo steps back one entry.
func (s *Session) Undo() bool { return s.history.Undo() }

// Redo steps forward one entry.
func (s *Session) Redo() bool { return s.history.Redo() }

// Jump makes entry i current.
func (s *Session) Jump(i int) error {
	if err := s.history.Jump(i); err != nil {
		return s.fail("jump", err)
	}
	return nil
}

// Clear empties the history and resets the canvas, prompt and reference.
func (s *Session) Clear() {
	s.history.Clear()
	s.mu.Lock()
	s.canvas.Reset()
	s.prompt = ""
	s.reference = nil
	s.message = Message{}
	s.metadata = nil
	s.promptCache = make(map[string]remote.PromptResult)
	s.mu.Unlock()
}

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

// ViewPrompt fetches the instructions behind the current entry. Results
// are cached per entry.
func (s *Session) ViewPrompt(ctx context.Context) (remote.PromptResult, error) {
	cur, ok := s.history.Current()
	idx := s.history.Index()
	if !ok || idx <= 0 {
		return remote.PromptResult{}, s.fail("view prompt", errNoPromptSource)
	}
	s.mu.Lock()
	cached, hit := s.promptCache[cur.ID]
	s.mu.Unlock()
	if hit {
		return cached, nil
	}

	prompt, requestID, ok := s.history.Originating(idx)
	if !ok {
		requestID = "pixie_copy_" + millis(s.cfg.Now())
	}
	png, err := toPNG(cur.Image)
	if err != nil {
		return remote.PromptResult{}, s.fail("view prompt", err)
	}
	res, err := s.cfg.Remote.Prompt(ctx, remote.PromptRequest{
		RequestID: requestID,
		Image:     png,
		Prompt:    prompt,
		Model:     s.cfg.ImageModel,
	})
	if err != nil {
		return remote.PromptResult{}, s.fail("view prompt", err)
	}
	s.mu.Lock()
	s.promptCache[cur.ID] = res
	s.mu.Unlock()
	return res, nil
}

// GenerateCode asks the service for markup reproducing the current image
// and records the links on the entry.
func (s *Session) GenerateCode(ctx context.Context) (remote.HTMLResult, error) {
	cur, ok := s.history.Current()
	if !ok {
		return remote.HTMLResult{}, s.fail("generate code", errNoImage)
	}
	idx := s.history.Index()
	png, err := toPNG(cur.Image)
	if err != nil {
		return remote.HTMLResult{}, s.fail("generate code", err)
	}
	res, err := s.cfg.Remote.ToHTML(ctx, remote.HTMLRequest{
		RequestID: "pixie_code_" + millis(s.cfg.Now()),
		Image:     png,
		Model:     s.cfg.CodeModel,
	})
	if err != nil {
		return remote.HTMLResult{}, s.fail("generate code", err)
	}
	if e, ok := s.history.At(idx); ok && e.ID == cur.ID {
		_ = s.history.AttachCode(idx, res.HTMLPath, res.ViewURL)
	}
	s.succeed("Code generated: " + res.HTMLPath)
	return res, nil
}

// Export writes the current image as PNG into dir and returns the path.
func (s *Session) Export(dir string) (string, error) {
	cur, ok := s.history.Current()
	if !ok {
		return "", s.fail("export", errNoExport)
	}
	png, err := toPNG(cur.Image)
	if err != nil {
		return "", s.fail("export", err)
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, "pixie-export-"+millis(s.cfg.Now())+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", s.fail("export", err)
	}
	s.succeed("Saved " + filepath.Base(path))
	s.cfg.Notifier.Save(path)
	return path, nil
}

// CopyImage puts the current image on the clipboard.
func (s *Session) CopyImage() error {
	cur, ok := s.history.Current()
	if !ok {
		return s.fail("copy", errNoImage)
	}
	png, err := toPNG(cur.Image)
	if err != nil {
		return s.fail("copy", err)
	}
	if err := writeClipboardPNG(png); err != nil {
		return s.fail("copy", err)
	}
	s.succeed("Copied!")
	s.cfg.Notifier.Copy("image")
	return nil
}

// PasteReference reads an image from the clipboard as the reference.
func (s *Session) PasteReference() error {
	data, err := readClipboardPNG()
	if err != nil {
		return s.fail("paste", err)
	}
	if err := s.SetReference(data); err != nil {
		return err
	}
	s.succeed("Reference image attached")
	return nil
}

// PasteImage loads the clipboard image as a new canvas root.
func (s *Session) PasteImage() error {
	data, err := readClipboardPNG()
	if err != nil {
		return s.fail("paste", err)
	}
	return s.Upload("clipboard.png", data)
}

func toPNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(img)
}
