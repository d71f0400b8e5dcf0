package appstate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"golang.org/x/exp/shiny/screen"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/session"
	"github.com/example/pixie/internal/theme"
	"github.com/example/pixie/internal/voice"
)

const (
	headerHeight = 28
	bottomHeight = 24
	panelWidth   = 300
	panelPad     = 8
	buttonHeight = 22
	buttonGap    = 4
	lineHeight   = 16
	labelHeight  = 18
	promptLines  = 4
	statusLines  = 5
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

var (
	bodyFace    font.Face = basicfont.Face7x13
	titleFace   font.Face
	messageFace font.Face
)

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	titleFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 16, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 20, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button is a clickable region that names the action it triggers.
type Button interface {
	Draw(dst *image.RGBA, th *theme.Theme, state ButtonState)
	Rect() image.Rectangle
	Action() string
}

// Shortcut is an entry of the bottom shortcut bar.
type Shortcut struct {
	label  string
	action string
	rect   image.Rectangle
}

var _ Button = Shortcut{}

func (s Shortcut) Draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	drawButton(dst, th, s.rect, s.label, state, 2)
}

func (s Shortcut) Rect() image.Rectangle { return s.rect }
func (s Shortcut) Action() string        { return s.action }

// ToolButton is a panel button. Active buttons render pressed.
type ToolButton struct {
	label  string
	action string
	rect   image.Rectangle
	active bool
}

var _ Button = ToolButton{}

func (tb ToolButton) Draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	if tb.active {
		state = StatePressed
	}
	drawButton(dst, th, tb.rect, tb.label, state, 6)
}

func (tb ToolButton) Rect() image.Rectangle { return tb.rect }
func (tb ToolButton) Action() string        { return tb.action }

func drawButton(dst *image.RGBA, th *theme.Theme, r image.Rectangle, label string, state ButtonState, pad int) {
	bg, fg := th.ButtonBackground, th.ButtonText
	switch state {
	case StateHover:
		bg = th.ButtonBackgroundHover
	case StatePressed:
		bg, fg = th.ButtonBackgroundActive, th.ButtonTextActive
	}
	draw.Draw(dst, r, &image.Uniform{bg}, image.Point{}, draw.Src)
	drawRect(dst, r, th.ButtonBorder, 1)
	drawText(dst, bodyFace, fg, r.Min.X+pad, r.Min.Y+(r.Dy()+10)/2, label)
}

func buttonState(b Button, mouse image.Point) ButtonState {
	if mouse.In(b.Rect()) {
		return StateHover
	}
	return StateDefault
}

// panelActions are the buttons below the prompt, two per row.
var panelActions = []struct{ label, action string }{
	{"Apply (Enter)", actionSubmit},
	{"Import URL", actionImport},
	{"Undo (^Z)", actionUndo},
	{"Redo (^Y)", actionRedo},
	{"Reference (^V)", actionPaste},
	{"Paste image", actionPasteImage},
	{"Copy (^C)", actionCopy},
	{"Export (^S)", actionExport},
	{"Voice (F2)", actionVoice},
	{"Dictate (F3)", actionDictate},
	{"View prompt (^P)", actionViewPrompt},
	{"Code (^G)", actionCode},
}

// paintState is a snapshot of everything a frame shows. It is built on the
// event goroutine and handed to the painter.
type paintState struct {
	width, height int
	theme         *theme.Theme
	mouse         image.Point

	image   *image.RGBA
	view    canvas.Viewport
	box     *canvas.Box
	ratioID string

	entries []string
	index   int
	source  string

	prompt    string
	url       string
	focus     focus
	reference bool
	busy      bool

	message    session.Message
	hasMessage bool

	voice      voice.State
	transcript string
	dictating  bool
	info       string
}

type historyRow struct {
	index int
	rect  image.Rectangle
}

// layout holds every hit region of a frame. It is a pure function of the
// paint state so the painter and the event loop agree on it.
type layout struct {
	header, canvas, panel, footer image.Rectangle
	prompt, url, status           image.Rectangle
	historyTop                    int
	buttons                       []ToolButton
	history                       []historyRow
	shortcuts                     []Shortcut
}

func layoutFor(st *paintState) layout {
	w, h := st.width, st.height
	px := w - panelWidth
	if px < 0 {
		px = 0
	}
	l := layout{
		header: image.Rect(0, 0, w, headerHeight),
		canvas: image.Rect(0, headerHeight, px, h-bottomHeight),
		panel:  image.Rect(px, headerHeight, w, h-bottomHeight),
		footer: image.Rect(0, h-bottomHeight, w, h),
	}
	x0 := px + panelPad
	inner := panelWidth - 2*panelPad
	col := (inner - panelPad) / 2
	cell := func(i, y int) image.Rectangle {
		x := x0 + (i%2)*(col+panelPad)
		return image.Rect(x, y, x+col, y+buttonHeight)
	}

	y := headerHeight + panelPad + labelHeight
	for i, r := range canvas.AspectRatios() {
		l.buttons = append(l.buttons, ToolButton{
			label:  fmt.Sprintf("%d  %s", i+1, shortRatioName(r)),
			action: ratioAction(i),
			rect:   cell(i, y),
			active: r.ID == st.ratioID,
		})
		if i%2 == 1 {
			y += buttonHeight + buttonGap
		}
	}

	y += panelPad + labelHeight
	l.prompt = image.Rect(x0, y, x0+inner, y+promptLines*lineHeight+6)
	y = l.prompt.Max.Y + lineHeight + panelPad + labelHeight
	l.url = image.Rect(x0, y, x0+inner, y+buttonHeight)
	y = l.url.Max.Y + panelPad

	for i, pa := range panelActions {
		active := false
		switch pa.action {
		case actionVoice:
			active = st.voice != voice.Idle
		case actionDictate:
			active = st.dictating
		case actionSubmit:
			active = st.busy
		}
		l.buttons = append(l.buttons, ToolButton{label: pa.label, action: pa.action, rect: cell(i, y), active: active})
		if i%2 == 1 {
			y += buttonHeight + buttonGap
		}
	}

	y += panelPad
	l.status = image.Rect(x0, y, x0+inner, y+statusLines*lineHeight)
	y = l.status.Max.Y + panelPad + labelHeight
	l.historyTop = y
	rows := (l.panel.Max.Y - panelPad - y) / lineHeight
	for i := historyWindow(len(st.entries), st.index, rows); i < len(st.entries) && len(l.history) < rows; i++ {
		l.history = append(l.history, historyRow{index: i, rect: image.Rect(x0, y, x0+inner, y+lineHeight)})
		y += lineHeight
	}

	l.shortcuts = shortcutsFor(st)
	return l
}

// historyWindow returns the first history row to show so that the current
// entry stays visible.
func historyWindow(n, current, rows int) int {
	if rows <= 0 || n <= rows {
		return 0
	}
	first := current - rows/2
	if first > n-rows {
		first = n - rows
	}
	if first < 0 {
		first = 0
	}
	return first
}

func shortRatioName(r canvas.AspectRatio) string {
	if i := strings.Index(r.Name, " ("); i > 0 {
		return r.Name[:i]
	}
	return r.Name
}

func shortcutsFor(st *paintState) []Shortcut {
	var shortcuts []Shortcut
	switch st.focus {
	case focusPrompt:
		shortcuts = []Shortcut{
			{label: "Enter:apply", action: actionSubmit},
			{label: "Esc:done", action: actionBlur},
			{label: "F3:dictate", action: actionDictate},
		}
	case focusURL:
		shortcuts = []Shortcut{
			{label: "Enter:import", action: actionImport},
			{label: "Esc:cancel", action: actionBlur},
		}
	default:
		shortcuts = []Shortcut{
			{label: "Enter:apply", action: actionSubmit},
			{label: "1-6:ratio", action: ""},
			{label: "^Z:undo", action: actionUndo},
			{label: "^Y:redo", action: actionRedo},
			{label: "^C:copy", action: actionCopy},
			{label: "^V:reference", action: actionPaste},
			{label: "^S:export", action: actionExport},
			{label: fmt.Sprintf("^0:zoom (%d%%)", st.view.Zoom), action: actionZoomReset},
			{label: "F2:voice", action: actionVoice},
			{label: "Esc:deselect", action: actionDeselect},
			{label: "^N:clear", action: actionClear},
			{label: "^Q:quit", action: actionQuit},
		}
	}
	x := 4
	y := st.height - bottomHeight + 16
	for i := range shortcuts {
		w := font.MeasureString(bodyFace, shortcuts[i].label).Ceil()
		shortcuts[i].rect = image.Rect(x-2, y-14, x+w+2, y+4)
		x = shortcuts[i].rect.Max.X + 8
	}
	return shortcuts
}

// wrapText breaks text into lines no wider than width. Words longer than
// width get a line of their own.
func wrapText(face font.Face, text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			cand := w
			if line != "" {
				cand = line + " " + w
			}
			if line != "" && font.MeasureString(face, cand).Ceil() > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = cand
		}
		lines = append(lines, line)
	}
	return lines
}

// overlay turns a theme colour, which carries straight alpha, into a source
// for draw.Over.
func overlay(c color.RGBA) *image.Uniform { return image.NewUniform(color.NRGBA(c)) }

func drawText(dst *image.RGBA, face font.Face, col color.Color, x, y int, s string) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

// drawCheckerboard fills rect of dst with a checkerboard pattern of the given
// colors. size controls the checker square size.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}

// backdrop caches the checkerboard shown behind transparent image areas.
type backdrop struct {
	img         *image.RGBA
	light, dark color.RGBA
}

func (b *backdrop) get(r image.Rectangle, th *theme.Theme) *image.RGBA {
	if b.img == nil || b.img.Bounds() != r || b.light != th.CheckerLight || b.dark != th.CheckerDark {
		b.img = image.NewRGBA(r)
		b.light, b.dark = th.CheckerLight, th.CheckerDark
		drawCheckerboard(b.img, r, 8, th.CheckerLight, th.CheckerDark)
	}
	return b.img
}

func setThickPixel(img *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			px := x + dx
			py := y + dy
			if image.Pt(px, py).In(img.Bounds()) {
				img.Set(px, py, col)
			}
		}
	}
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func drawFilledCircle(img *image.RGBA, cx, cy, r int, col color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				px := cx + dx
				py := cy + dy
				if image.Pt(px, py).In(img.Bounds()) {
					img.Set(px, py, col)
				}
			}
		}
	}
}

func drawDashedLine(img *image.RGBA, x0, y0, x1, y1, dash, thickness int, c1, c2 color.Color) {
	horiz := y0 == y1
	length := x1 - x0
	if !horiz {
		length = y1 - y0
	}
	step := 1
	if length < 0 {
		length = -length
		step = -1
	}
	for i := 0; i <= length; i++ {
		col := c1
		if (i/dash)%2 == 1 {
			col = c2
		}
		for t := 0; t < thickness; t++ {
			if horiz {
				img.Set(x0+i*step, y0+t, col)
			} else {
				img.Set(x0+t, y0+i*step, col)
			}
		}
	}
}

func drawDashedRect(img *image.RGBA, rect image.Rectangle, dash, thickness int, c1, c2 color.Color) {
	drawDashedLine(img, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Min.Y, rect.Max.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Max.X, rect.Max.Y, rect.Min.X, rect.Max.Y, dash, thickness, c1, c2)
	drawDashedLine(img, rect.Min.X, rect.Max.Y, rect.Min.X, rect.Min.Y, dash, thickness, c1, c2)
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	drawLine(img, rect.Min.X, rect.Min.Y, rect.Max.X-1, rect.Min.Y, col, thick)
	drawLine(img, rect.Max.X-1, rect.Min.Y, rect.Max.X-1, rect.Max.Y-1, col, thick)
	drawLine(img, rect.Max.X-1, rect.Max.Y-1, rect.Min.X, rect.Max.Y-1, col, thick)
	drawLine(img, rect.Min.X, rect.Max.Y-1, rect.Min.X, rect.Min.Y, col, thick)
}

// handleRects returns the four corner grab squares of a screen rectangle in
// top-left, top-right, bottom-left, bottom-right order.
func handleRects(rect image.Rectangle) []image.Rectangle {
	hs := canvas.HandleRadius
	return []image.Rectangle{
		image.Rect(rect.Min.X-hs, rect.Min.Y-hs, rect.Min.X+hs, rect.Min.Y+hs),
		image.Rect(rect.Max.X-hs, rect.Min.Y-hs, rect.Max.X+hs, rect.Min.Y+hs),
		image.Rect(rect.Min.X-hs, rect.Max.Y-hs, rect.Min.X+hs, rect.Max.Y+hs),
		image.Rect(rect.Max.X-hs, rect.Max.Y-hs, rect.Max.X+hs, rect.Max.Y+hs),
	}
}

// screenRect maps an image-space box onto window pixels for a canvas whose
// top-left corner sits at origin.
func screenRect(view canvas.Viewport, origin image.Point, b canvas.Box) image.Rectangle {
	lo := view.ToScreen(b.Min())
	hi := view.ToScreen(b.Max())
	return image.Rect(
		origin.X+int(math.Round(lo.X)), origin.Y+int(math.Round(lo.Y)),
		origin.X+int(math.Round(hi.X)), origin.Y+int(math.Round(hi.Y)),
	)
}

// drawSelection paints the translucent box, its dashed border and the four
// corner handles.
func drawSelection(dst *image.RGBA, th *theme.Theme, r image.Rectangle) {
	draw.Draw(dst, r, overlay(th.SelectionFill), image.Point{}, draw.Over)
	drawDashedRect(dst, r, 6, 2, th.SelectionBorder, th.HandleFill)
	for _, hr := range handleRects(r) {
		draw.Draw(dst, hr, &image.Uniform{th.HandleFill}, image.Point{}, draw.Src)
		drawRect(dst, hr, th.HandleBorder, 1)
	}
}

type painter struct {
	backdrop backdrop
}

// render draws st into dst. It stops early and reports false when ctx is
// canceled.
func (p *painter) render(ctx context.Context, dst *image.RGBA, st *paintState) bool {
	th := st.theme
	l := layoutFor(st)

	draw.Draw(dst, dst.Bounds(), &image.Uniform{th.Background}, image.Point{}, draw.Src)
	p.drawCanvas(dst, st, l)
	if ctx.Err() != nil {
		return false
	}
	drawHeader(dst, st, l)
	drawPanel(dst, st, l)
	draw.Draw(dst, l.footer, &image.Uniform{th.HeaderBackground}, image.Point{}, draw.Src)
	for _, sc := range l.shortcuts {
		sc.Draw(dst, th, buttonState(sc, st.mouse))
	}
	if ctx.Err() != nil {
		return false
	}
	if st.hasMessage {
		drawMessage(dst, th, l.canvas, st.message)
	}
	return ctx.Err() == nil
}

func (p *painter) drawCanvas(dst *image.RGBA, st *paintState, l layout) {
	th := st.theme
	sub, ok := dst.SubImage(l.canvas).(*image.RGBA)
	if !ok || l.canvas.Empty() {
		return
	}
	draw.Draw(sub, l.canvas, &image.Uniform{th.CanvasBackground}, image.Point{}, draw.Src)
	if st.image == nil {
		msg := "Import a website (Ctrl+L) or paste an image (Ctrl+Shift+V)"
		w := font.MeasureString(bodyFace, msg).Ceil()
		drawText(sub, bodyFace, th.MutedText, l.canvas.Min.X+(l.canvas.Dx()-w)/2, l.canvas.Min.Y+l.canvas.Dy()/2, msg)
		return
	}
	b := st.image.Bounds()
	imgRect := screenRect(st.view, l.canvas.Min, canvas.Box{Width: float64(b.Dx()), Height: float64(b.Dy())})
	if vis := imgRect.Intersect(l.canvas); !vis.Empty() {
		draw.Draw(sub, vis, p.backdrop.get(l.canvas, th), vis.Min, draw.Src)
	}
	xdraw.NearestNeighbor.Scale(sub, imgRect, st.image, b, draw.Over, nil)

	if st.box == nil {
		return
	}
	r := screenRect(st.view, l.canvas.Min, *st.box)
	drawSelection(sub, th, r)
	label := fmt.Sprintf("%.0f x %.0f", st.box.Width, st.box.Height)
	drawText(sub, bodyFace, th.SelectionBorder, r.Min.X, r.Max.Y+lineHeight, label)
	if st.busy {
		msg := "Transforming..."
		w := font.MeasureString(bodyFace, msg).Ceil()
		tr := image.Rect(r.Min.X+(r.Dx()-w)/2-6, r.Min.Y+r.Dy()/2-12, r.Min.X+(r.Dx()+w)/2+6, r.Min.Y+r.Dy()/2+8)
		draw.Draw(sub, tr, overlay(th.PanelBackground), image.Point{}, draw.Over)
		drawText(sub, bodyFace, th.Foreground, tr.Min.X+6, tr.Max.Y-6, msg)
	}
}

func drawHeader(dst *image.RGBA, st *paintState, l layout) {
	th := st.theme
	draw.Draw(dst, l.header, &image.Uniform{th.HeaderBackground}, image.Point{}, draw.Src)
	drawText(dst, titleFace, th.Foreground, 8, 20, "Pixie")
	x := 72
	if n := len(st.entries); n > 0 {
		s := fmt.Sprintf("History %d/%d", st.index+1, n)
		drawText(dst, bodyFace, th.MutedText, x, 18, s)
		x += font.MeasureString(bodyFace, s).Ceil() + 16
	}
	zoom := fmt.Sprintf("Zoom %d%%", st.view.Zoom)
	drawText(dst, bodyFace, th.MutedText, x, 18, zoom)
	x += font.MeasureString(bodyFace, zoom).Ceil() + 16
	if st.source != "" {
		drawText(dst, bodyFace, th.MutedText, x, 18, st.source)
	}
	if st.voice != voice.Idle {
		cx := l.header.Max.X - 16
		drawFilledCircle(dst, cx, headerHeight/2, 6, th.VoiceActive)
		s := st.voice.String()
		w := font.MeasureString(bodyFace, s).Ceil()
		drawText(dst, bodyFace, th.Foreground, cx-12-w, 18, s)
	}
}

func drawPanel(dst *image.RGBA, st *paintState, l layout) {
	th := st.theme
	draw.Draw(dst, l.panel, &image.Uniform{th.PanelBackground}, image.Point{}, draw.Src)
	drawLine(dst, l.panel.Min.X, l.panel.Min.Y, l.panel.Min.X, l.panel.Max.Y-1, th.ButtonBorder, 1)
	x0 := l.panel.Min.X + panelPad

	drawText(dst, bodyFace, th.Foreground, x0, headerHeight+panelPad+13, "Aspect ratio")
	for _, b := range l.buttons {
		b.Draw(dst, th, buttonState(b, st.mouse))
	}

	drawText(dst, bodyFace, th.Foreground, x0, l.prompt.Min.Y-5, "Prompt")
	field(dst, th, l.prompt, st.focus == focusPrompt)
	text := st.prompt
	if st.focus == focusPrompt {
		text += "|"
	}
	lines := wrapText(bodyFace, text, l.prompt.Dx()-8)
	if len(lines) > promptLines {
		lines = lines[len(lines)-promptLines:]
	}
	for i, line := range lines {
		drawText(dst, bodyFace, th.Foreground, l.prompt.Min.X+4, l.prompt.Min.Y+14+i*lineHeight, line)
	}
	ref := "No reference image (^V to attach)"
	if st.reference {
		ref = "Reference image attached"
	}
	drawText(dst, bodyFace, th.MutedText, x0, l.prompt.Max.Y+14, ref)

	drawText(dst, bodyFace, th.Foreground, x0, l.url.Min.Y-5, "Website URL (^L)")
	field(dst, th, l.url, st.focus == focusURL)
	url := st.url
	if st.focus == focusURL {
		url += "|"
	}
	drawText(dst, bodyFace, th.Foreground, l.url.Min.X+4, l.url.Min.Y+15, url)

	var status []string
	if st.voice != voice.Idle {
		status = append(status, "Voice: "+st.voice.String())
		if st.transcript != "" {
			status = append(status, wrapText(bodyFace, "\""+st.transcript+"\"", l.status.Dx())...)
		}
	}
	if st.dictating {
		status = append(status, "Dictating... press F3 to finish")
	}
	if st.info != "" {
		status = append(status, wrapText(bodyFace, st.info, l.status.Dx())...)
	}
	for i, line := range status {
		if i >= statusLines {
			break
		}
		drawText(dst, bodyFace, th.MutedText, l.status.Min.X, l.status.Min.Y+13+i*lineHeight, line)
	}

	drawText(dst, bodyFace, th.Foreground, x0, l.historyTop-5, "History")
	for _, row := range l.history {
		col := th.MutedText
		if row.index == st.index {
			draw.Draw(dst, row.rect, &image.Uniform{th.ButtonBackgroundActive}, image.Point{}, draw.Src)
			col = th.ButtonTextActive
		} else if st.mouse.In(row.rect) {
			draw.Draw(dst, row.rect, &image.Uniform{th.ButtonBackgroundHover}, image.Point{}, draw.Src)
		}
		label := fmt.Sprintf("%d. %s", row.index+1, st.entries[row.index])
		if limit := row.rect.Dx()/7 - 1; len(label) > limit && limit > 3 {
			label = label[:limit-3] + "..."
		}
		drawText(dst, bodyFace, col, row.rect.Min.X+4, row.rect.Min.Y+12, label)
	}
}

func field(dst *image.RGBA, th *theme.Theme, r image.Rectangle, focused bool) {
	draw.Draw(dst, r, &image.Uniform{th.Background}, image.Point{}, draw.Src)
	border, thick := th.ButtonBorder, 1
	if focused {
		border, thick = th.SelectionBorder, 2
	}
	drawRect(dst, r, border, thick)
}

func drawMessage(dst *image.RGBA, th *theme.Theme, area image.Rectangle, m session.Message) {
	bg, fg := th.SuccessBackground, th.SuccessText
	if m.Kind == session.MessageError {
		bg, fg = th.ErrorBackground, th.ErrorText
	}
	lines := wrapText(messageFace, m.Text, area.Dx()-64)
	ascent := messageFace.Metrics().Ascent.Ceil()
	height := messageFace.Metrics().Height.Ceil()
	wmax := 0
	for _, line := range lines {
		if w := font.MeasureString(messageFace, line).Ceil(); w > wmax {
			wmax = w
		}
	}
	px := area.Min.X + (area.Dx()-wmax)/2
	py := area.Min.Y + 24
	rect := image.Rect(px-12, py-8, px+wmax+12, py+len(lines)*height+8)
	draw.Draw(dst, rect, overlay(bg), image.Point{}, draw.Over)
	drawRect(dst, rect, fg, 1)
	for i, line := range lines {
		drawText(dst, messageFace, fg, px, py+ascent+i*height, line)
	}
}

func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, p *painter, st *paintState) error {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		return fmt.Errorf("new buffer: %w", err)
	}
	defer b.Release()
	if !p.render(ctx, b.RGBA(), st) {
		return nil
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
	return nil
}
