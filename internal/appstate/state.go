package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/history"
	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/session"
	"github.com/example/pixie/internal/theme"
	"github.com/example/pixie/internal/voice"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800

	// wheelStep is the scroll distance of one wheel notch in screen pixels.
	wheelStep = 40
	// arrowStep is the scroll distance of one arrow key press.
	arrowStep = 40

	tickInterval = 250 * time.Millisecond
)

var errVoiceUnavailable = errors.New("voice mode is not configured")

// VoiceLoop is the live voice conversation driven by F2.
type VoiceLoop interface {
	Start(ctx context.Context, pre voice.Preconditions) error
	Stop()
	State() voice.State
	Transcript() string
	OnStateChange(func(voice.State))
}

// Dictator records one prompt by voice, driven by F3.
type Dictator interface {
	Start(ctx context.Context) error
	Recording() bool
	Finish(ctx context.Context) (string, error)
	Cancel()
}

type focus int

const (
	focusCanvas focus = iota
	focusPrompt
	focusURL
)

// AppState is the canvas window. It turns shiny events into session
// actions and paints the session state.
type AppState struct {
	Session   *session.Session
	Theme     *theme.Theme
	Voice     VoiceLoop
	Dictation Dictator
	SaveDir   string
	URL       string
	Title     string
	Logger    *slog.Logger

	updateCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// event goroutine only
	focus        focus
	urlInput     string
	spaceHeld    bool
	confirmClear bool
	mouse        image.Point
	decodedID    string
	decoded      *image.RGBA

	mu   sync.Mutex
	info string

	onClose   func()
	closeOnce sync.Once
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithSession sets the session the window edits.
func WithSession(s *session.Session) Option { return func(a *AppState) { a.Session = s } }

// WithTheme sets the colour palette.
func WithTheme(t *theme.Theme) Option { return func(a *AppState) { a.Theme = t } }

// WithVoice enables live voice mode.
func WithVoice(v VoiceLoop) Option { return func(a *AppState) { a.Voice = v } }

// WithDictation enables prompt dictation.
func WithDictation(d Dictator) Option { return func(a *AppState) { a.Dictation = d } }

// WithSaveDir sets the directory exports are written to.
func WithSaveDir(dir string) Option { return func(a *AppState) { a.SaveDir = dir } }

// WithURL imports the website once the window is open.
func WithURL(url string) Option { return func(a *AppState) { a.URL = url } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(a *AppState) { a.Title = title } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(a *AppState) { a.Logger = l } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState with the provided options.
func New(opts ...Option) *AppState {
	a := &AppState{
		Theme:    theme.Default(),
		Title:    "Pixie",
		Logger:   slog.Default(),
		updateCh: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(a)
	}
	if a.Session == nil {
		a.Session = session.New(session.Config{Logger: a.Logger})
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.Session.History().OnChange(func(history.ImageState, int) { a.NotifyChanged() })
	if a.Voice != nil {
		a.Voice.OnStateChange(func(voice.State) { a.NotifyChanged() })
	}
	return a
}

// NotifyChanged requests a repaint of the UI.
func (a *AppState) NotifyChanged() {
	select {
	case a.updateCh <- struct{}{}:
	default:
	}
}

func (a *AppState) setInfo(s string) {
	a.mu.Lock()
	a.info = s
	a.mu.Unlock()
	a.NotifyChanged()
}

func (a *AppState) getInfo() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		a.cancel()
		if a.Voice != nil {
			a.Voice.Stop()
		}
		if a.Dictation != nil {
			a.Dictation.Cancel()
		}
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

// Main runs the window on s until it is closed.
func (a *AppState) Main(s screen.Screen) {
	width, height := defaultWidth, defaultHeight
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: a.Title})
	if err != nil {
		a.Logger.Error("appstate: new window", "error", err)
		return
	}
	defer w.Release()
	defer a.notifyClose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for {
			select {
			case <-a.updateCh:
				w.Send(paint.Event{})
			case <-t.C:
				if a.animating() {
					w.Send(paint.Event{})
				}
			case <-done:
				return
			}
		}
	}()

	p := &painter{}
	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan *paintState, 1)
	go func() {
		for st := range paintCh {
			ctx, cancel := context.WithCancel(context.Background())
			paintMu.Lock()
			paintCancel = cancel
			paintMu.Unlock()
			if err := drawFrame(ctx, s, w, p, st); err != nil {
				a.Logger.Warn("appstate: paint", "error", err)
			}
			paintMu.Lock()
			paintCancel = nil
			if ctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			cancel()
		}
	}()
	defer close(paintCh)

	stopPaint := func() {
		paintMu.Lock()
		if paintCancel != nil {
			paintCancel()
		}
		paintMu.Unlock()
	}

	a.resize(width, height)
	if a.URL != "" {
		url := a.URL
		a.async("import", func(ctx context.Context) error { return a.Session.ImportWebsite(ctx, url) })
	}

	for {
		e := w.NextEvent()
		switch e := e.(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				stopPaint()
				return
			}
			if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
				a.spaceHeld = false
				a.Session.WithCanvas(func(c *canvas.Controller) { c.PointerLeave() })
				w.Send(paint.Event{})
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			a.resize(width, height)
			w.Send(paint.Event{})
		case paint.Event:
			paintMu.Lock()
			if paintCancel != nil && dropCount < frameDropThreshold {
				paintCancel()
				dropCount++
			}
			paintMu.Unlock()
			st := a.snapshot(width, height)
			select {
			case paintCh <- st:
			default:
				select {
				case <-paintCh:
				default:
				}
				paintCh <- st
			}
		case mouse.Event:
			repaint, quit := a.handleMouse(e, width, height)
			if quit {
				stopPaint()
				return
			}
			if repaint {
				w.Send(paint.Event{})
			}
		case key.Event:
			repaint, quit := a.handleKey(e)
			if quit {
				stopPaint()
				return
			}
			if repaint {
				w.Send(paint.Event{})
			}
		}
	}
}

// animating reports whether the window shows something time dependent.
func (a *AppState) animating() bool {
	if a.Session.Busy() {
		return true
	}
	if _, ok := a.Session.Message(); ok {
		return true
	}
	if a.Voice != nil && a.Voice.State() != voice.Idle {
		return true
	}
	return a.Dictation != nil && a.Dictation.Recording()
}

func (a *AppState) resize(width, height int) {
	l := layoutFor(&paintState{width: width, height: height})
	a.Session.SetViewSize(l.canvas.Dx(), l.canvas.Dy())
}

// async runs fn off the event goroutine and repaints when it returns.
// Failures are already reported by the session.
func (a *AppState) async(name string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(a.ctx); err != nil {
			a.Logger.Debug("appstate: "+name+" finished with error", "error", err)
		}
		a.NotifyChanged()
	}()
}

// currentImage decodes the current history entry, caching by entry id. A
// new entry also updates the image size used for hit testing.
func (a *AppState) currentImage() *image.RGBA {
	cur, ok := a.Session.History().Current()
	if !ok {
		a.decodedID, a.decoded = "", nil
		return nil
	}
	if cur.ID == a.decodedID {
		return a.decoded
	}
	img, err := imaging.Decode(cur.Image)
	if err != nil {
		a.Logger.Warn("appstate: decode current image", "id", cur.ID, "error", err)
		return nil
	}
	a.decodedID, a.decoded = cur.ID, img
	b := img.Bounds()
	a.Session.WithCanvas(func(c *canvas.Controller) { c.SetImageSize(b.Dx(), b.Dy()) })
	return img
}

func entryLabel(e history.ImageState) string {
	if e.Prompt != "" {
		return e.Prompt
	}
	return e.Description
}

func (a *AppState) snapshot(width, height int) *paintState {
	st := &paintState{
		width:     width,
		height:    height,
		theme:     a.Theme,
		mouse:     a.mouse,
		image:     a.currentImage(),
		prompt:    a.Session.Prompt(),
		url:       a.urlInput,
		focus:     a.focus,
		reference: a.Session.Reference() != nil,
		busy:      a.Session.Busy(),
		info:      a.getInfo(),
		index:     a.Session.History().Index(),
	}
	for _, e := range a.Session.History().Entries() {
		st.entries = append(st.entries, entryLabel(e))
	}
	if md, ok := a.Session.Metadata(); ok {
		st.source = md.URL
	}
	a.Session.WithCanvas(func(c *canvas.Controller) {
		st.view = c.View
		if b, ok := c.Selection(); ok {
			st.box = &b
		}
		if r, ok := c.AspectRatio(); ok {
			st.ratioID = r.ID
		}
	})
	st.message, st.hasMessage = a.Session.Message()
	if a.Voice != nil {
		st.voice = a.Voice.State()
		st.transcript = a.Voice.Transcript()
	}
	if a.Dictation != nil {
		st.dictating = a.Dictation.Recording()
	}
	return st
}

func (a *AppState) handleMouse(e mouse.Event, width, height int) (repaint, quit bool) {
	a.mouse = image.Pt(int(e.X), int(e.Y))
	st := &paintState{width: width, height: height, focus: a.focus}
	a.Session.WithCanvas(func(c *canvas.Controller) { st.view = c.View })
	st.entries = make([]string, a.Session.History().Len())
	st.index = a.Session.History().Index()
	l := layoutFor(st)
	sp := canvas.Pt(float64(e.X)-float64(l.canvas.Min.X), float64(e.Y)-float64(l.canvas.Min.Y))

	// An active gesture keeps receiving the pointer wherever it goes.
	gesture := false
	a.Session.WithCanvas(func(c *canvas.Controller) {
		if _, idle := c.Mode().(canvas.Idle); idle {
			return
		}
		gesture = true
		switch e.Direction {
		case mouse.DirRelease:
			c.PointerUp()
			repaint = true
		default:
			repaint = c.PointerMove(sp)
		}
	})
	if gesture {
		return repaint, false
	}

	if e.Button.IsWheel() {
		if e.Direction != mouse.DirStep || !a.mouse.In(l.canvas) {
			return false, false
		}
		var dy float64
		switch e.Button {
		case mouse.ButtonWheelUp:
			dy = -wheelStep
		case mouse.ButtonWheelDown:
			dy = wheelStep
		}
		mods := canvas.Modifiers{Zoom: e.Modifiers&(key.ModControl|key.ModMeta) != 0}
		a.Session.WithCanvas(func(c *canvas.Controller) { repaint = c.Wheel(dy, mods) })
		return repaint, false
	}

	if e.Direction == mouse.DirNone {
		// hover feedback outside the canvas
		return !a.mouse.In(l.canvas), false
	}
	if e.Direction != mouse.DirPress {
		return false, false
	}

	if _, ok := a.Session.Message(); ok {
		a.Session.DismissMessage()
		return true, false
	}

	switch {
	case a.mouse.In(l.footer):
		for _, sc := range l.shortcuts {
			if a.mouse.In(sc.rect) && e.Button == mouse.ButtonLeft && sc.action != "" {
				return true, a.perform(sc.action)
			}
		}
		return false, false
	case a.mouse.In(l.panel):
		if e.Button != mouse.ButtonLeft {
			return false, false
		}
		for _, b := range l.buttons {
			if a.mouse.In(b.rect) {
				return true, a.perform(b.action)
			}
		}
		for _, row := range l.history {
			if a.mouse.In(row.rect) {
				_ = a.Session.Jump(row.index)
				return true, false
			}
		}
		switch {
		case a.mouse.In(l.prompt):
			a.focus = focusPrompt
		case a.mouse.In(l.url):
			a.focus = focusURL
		default:
			return false, false
		}
		return true, false
	case a.mouse.In(l.canvas):
		a.focus = focusCanvas
		mods := canvas.Modifiers{
			Pan:  a.spaceHeld,
			Zoom: e.Modifiers&(key.ModControl|key.ModMeta) != 0,
		}
		a.Session.WithCanvas(func(c *canvas.Controller) {
			switch e.Button {
			case mouse.ButtonLeft:
				c.Press(sp, canvas.ButtonPrimary, mods)
			case mouse.ButtonRight:
				c.Press(sp, canvas.ButtonSecondary, mods)
			case mouse.ButtonMiddle:
				c.BeginPan(sp)
			}
		})
		return true, false
	}
	return false, false
}

func (a *AppState) handleKey(e key.Event) (repaint, quit bool) {
	if e.Code == key.CodeSpacebar && a.focus == focusCanvas {
		a.spaceHeld = e.Direction != key.DirRelease
		return false, false
	}
	if e.Direction == key.DirRelease {
		return false, false
	}

	if a.focus != focusCanvas {
		if a.editText(e) {
			return true, false
		}
	}
	action, ok := resolveKey(e, a.focus)
	if !ok {
		a.confirmClear = false
		return false, false
	}
	if action == actionClear {
		if !a.confirmClear {
			a.confirmClear = true
			a.setInfo("Press Ctrl+N again to clear the canvas and history")
			return true, false
		}
		a.setInfo("")
	}
	a.confirmClear = false
	return true, a.perform(action)
}

// editText applies a typing key to the focused text field. It reports
// whether the key was consumed.
func (a *AppState) editText(e key.Event) bool {
	if e.Modifiers&(key.ModControl|key.ModMeta|key.ModAlt) != 0 {
		return false
	}
	get := func() string {
		if a.focus == focusURL {
			return a.urlInput
		}
		return a.Session.Prompt()
	}
	set := func(s string) {
		if a.focus == focusURL {
			a.urlInput = s
			return
		}
		a.Session.SetPrompt(s)
	}
	switch e.Code {
	case key.CodeDeleteBackspace:
		s := get()
		if s != "" {
			_, n := utf8.DecodeLastRuneInString(s)
			set(s[:len(s)-n])
		}
		return true
	case key.CodeReturnEnter, key.CodeEscape, key.CodeTab:
		return false
	}
	if e.Rune > 0 && unicode.IsPrint(e.Rune) {
		set(get() + string(e.Rune))
		return true
	}
	return false
}

// perform runs a named action. It reports whether the window should close.
func (a *AppState) perform(action string) bool {
	s := a.Session
	switch action {
	case actionQuit:
		return true
	case actionSubmit:
		a.focus = focusCanvas
		a.async("submit", s.Submit)
	case actionImport:
		url := strings.TrimSpace(a.urlInput)
		if a.focus != focusURL && url == "" {
			a.focus = focusURL
			return false
		}
		a.focus = focusCanvas
		a.async("import", func(ctx context.Context) error { return s.ImportWebsite(ctx, url) })
	case actionFocusURL:
		a.focus = focusURL
	case actionFocusNext:
		a.focus = (a.focus + 1) % 3
	case actionBlur:
		a.focus = focusCanvas
	case actionUndo:
		s.Undo()
	case actionRedo:
		s.Redo()
	case actionCopy:
		_ = s.CopyImage()
	case actionPaste:
		_ = s.PasteReference()
	case actionPasteImage:
		_ = s.PasteImage()
	case actionExport:
		_, _ = s.Export(a.SaveDir)
	case actionClear:
		if a.Voice != nil {
			a.Voice.Stop()
		}
		s.Clear()
		a.urlInput = ""
	case actionDeselect:
		s.WithCanvas(func(c *canvas.Controller) { c.Clear() })
	case actionZoomIn:
		s.WithCanvas(func(c *canvas.Controller) { c.View.ZoomBy(1) })
	case actionZoomOut:
		s.WithCanvas(func(c *canvas.Controller) { c.View.ZoomBy(-1) })
	case actionZoomReset:
		s.WithCanvas(func(c *canvas.Controller) { c.View.ResetZoom() })
	case actionScrollLeft, actionScrollRight, actionScrollUp, actionScrollDown:
		d := map[string]canvas.Point{
			actionScrollLeft:  canvas.Pt(-arrowStep, 0),
			actionScrollRight: canvas.Pt(arrowStep, 0),
			actionScrollUp:    canvas.Pt(0, -arrowStep),
			actionScrollDown:  canvas.Pt(0, arrowStep),
		}[action]
		s.WithCanvas(func(c *canvas.Controller) { c.View.Scroll = c.View.Scroll.Add(d) })
	case actionVoice:
		a.toggleVoice()
	case actionDictate:
		a.toggleDictation()
	case actionViewPrompt:
		a.async("view prompt", func(ctx context.Context) error {
			res, err := s.ViewPrompt(ctx)
			if err != nil {
				return err
			}
			a.setInfo(res.Instructions)
			return nil
		})
	case actionCode:
		a.async("generate code", func(ctx context.Context) error {
			res, err := s.GenerateCode(ctx)
			if err != nil {
				return err
			}
			info := "Code: " + res.HTMLPath
			if res.ViewURL != "" {
				info += " (" + res.ViewURL + ")"
			}
			a.setInfo(info)
			return nil
		})
	default:
		if i, ok := ratioIndex(action); ok {
			ratios := canvas.AspectRatios()
			if i < len(ratios) {
				s.SelectAspectRatio(ratios[i].ID)
			}
			return false
		}
		a.Logger.Debug("appstate: unknown action", "action", action)
	}
	return false
}

func (a *AppState) toggleVoice() {
	if a.Voice == nil {
		a.Session.Report("voice", errVoiceUnavailable)
		return
	}
	if a.Voice.State() != voice.Idle {
		a.Voice.Stop()
		return
	}
	if a.Dictation != nil && a.Dictation.Recording() {
		a.Dictation.Cancel()
	}
	if err := a.Voice.Start(a.ctx, a.Session.VoicePreconditions()); err != nil {
		a.Session.Report("voice", err)
	}
}

func (a *AppState) toggleDictation() {
	d := a.Dictation
	if d == nil {
		a.Session.Report("dictation", errVoiceUnavailable)
		return
	}
	if !d.Recording() {
		if a.Voice != nil && a.Voice.State() != voice.Idle {
			a.Session.Report("dictation", errors.New("stop voice mode before dictating"))
			return
		}
		if err := d.Start(a.ctx); err != nil {
			a.Session.Report("dictation", err)
		}
		return
	}
	a.async("dictation", func(ctx context.Context) error {
		text, err := d.Finish(ctx)
		if err != nil {
			a.Session.Report("dictation", err)
			return err
		}
		a.Session.SetPrompt(joinPrompt(a.Session.Prompt(), text))
		return nil
	})
}

// joinPrompt appends dictated text to the typed prompt.
func joinPrompt(prompt, text string) string {
	prompt = strings.TrimRight(prompt, " ")
	text = strings.TrimSpace(text)
	switch {
	case prompt == "":
		return text
	case text == "":
		return prompt
	}
	return fmt.Sprintf("%s %s", prompt, text)
}
