package canvas

// Mode is the single active pointer interaction. Exactly one of Idle,
// Panning, Drawing, Moving or Resizing is current at any time, so
// combinations such as "panning while resizing" cannot be represented.
type Mode interface {
	isMode()
	String() string
}

// Idle means no gesture is in progress.
type Idle struct{}

// Panning scrolls the canvas so the content follows the pointer.
type Panning struct {
	Start  Point // screen position at press
	Scroll Point // scroll offset at press
}

// Drawing grows a free selection from Anchor (image space).
type Drawing struct {
	Anchor Point
	Prev   *Box // box to restore if nothing is drawn
}

// Moving translates the selection box.
type Moving struct {
	Last Point // last screen position
}

// Resizing drags one corner of the selection box.
type Resizing struct {
	Handle Handle
	Last   Point // last screen position
}

func (Idle) isMode()     {}
func (Panning) isMode()  {}
func (Drawing) isMode()  {}
func (Moving) isMode()   {}
func (Resizing) isMode() {}

func (Idle) String() string       { return "idle" }
func (Panning) String() string    { return "panning" }
func (Drawing) String() string    { return "drawing" }
func (Moving) String() string     { return "moving" }
func (m Resizing) String() string { return "resizing " + m.Handle.String() }

// Button is the pointer button of a press.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Modifiers describes keys held during a pointer or wheel event.
type Modifiers struct {
	Pan  bool // space held
	Zoom bool // ctrl or meta held
}

// HandleRadius is the half-size, in screen pixels, of a corner grab area.
const HandleRadius = 6

// Controller owns the transient canvas state: viewport, selection box,
// chosen aspect ratio and the current interaction mode. It is not safe for
// concurrent use; the UI goroutine drives it.
type Controller struct {
	View Viewport

	box       *Box
	ratio     *AspectRatio
	mode      Mode
	imageSize Point
}

// NewController returns a controller at default zoom with no selection.
func NewController() *Controller {
	return &Controller{View: NewViewport(), mode: Idle{}}
}

// Mode returns the active interaction.
func (c *Controller) Mode() Mode {
	if c.mode == nil {
		return Idle{}
	}
	return c.mode
}

func (c *Controller) idle() bool {
	_, ok := c.Mode().(Idle)
	return ok
}

// SetImageSize records the natural pixel size of the displayed image. A
// zero size means no image is loaded.
func (c *Controller) SetImageSize(w, h int) {
	c.imageSize = Point{float64(w), float64(h)}
}

// HasImage reports whether an image size has been recorded.
func (c *Controller) HasImage() bool {
	return c.imageSize.X > 0 && c.imageSize.Y > 0
}

// Selection returns the current box.
func (c *Controller) Selection() (Box, bool) {
	if c.box == nil {
		return Box{}, false
	}
	return *c.box, true
}

// AspectRatio returns the chosen ratio.
func (c *Controller) AspectRatio() (AspectRatio, bool) {
	if c.ratio == nil {
		return AspectRatio{}, false
	}
	return *c.ratio, true
}

// SetSelection replaces the box and ratio directly, bypassing gestures.
func (c *Controller) SetSelection(r AspectRatio, b Box) {
	c.ratio = &r
	c.box = &b
}

// SelectAspectRatio toggles r. Choosing the active ratio again clears both
// the ratio and the box. Choosing any other ratio creates a fresh default
// box centred in the visible area (view is its size in screen pixels) when
// an image is loaded. It reports whether r is selected afterwards.
func (c *Controller) SelectAspectRatio(r AspectRatio, view Point) bool {
	if c.ratio != nil && c.ratio.ID == r.ID {
		c.ratio = nil
		c.box = nil
		c.mode = Idle{}
		return false
	}
	c.ratio = &r
	c.box = nil
	if c.HasImage() {
		b := DefaultBox(r, c.View.ToImage(view.Div(2)))
		c.box = &b
	}
	return true
}

// Clear removes the box and the ratio.
func (c *Controller) Clear() {
	c.box = nil
	c.ratio = nil
	c.mode = Idle{}
}

// Reset clears the selection and the viewport.
func (c *Controller) Reset() {
	c.Clear()
	c.View = NewViewport()
	c.imageSize = Point{}
}

// HitTest reports which corner handle or whether the box body lies under
// the screen point.
func (c *Controller) HitTest(screen Point) (Handle, bool) {
	if c.box == nil {
		return HandleNone, false
	}
	lo := c.View.ToScreen(c.box.Min())
	hi := c.View.ToScreen(c.box.Max())
	corners := []struct {
		h Handle
		p Point
	}{
		{HandleTopLeft, lo},
		{HandleTopRight, Point{hi.X, lo.Y}},
		{HandleBottomLeft, Point{lo.X, hi.Y}},
		{HandleBottomRight, hi},
	}
	for _, cn := range corners {
		if abs(screen.X-cn.p.X) <= HandleRadius && abs(screen.Y-cn.p.Y) <= HandleRadius {
			return cn.h, false
		}
	}
	return HandleNone, c.box.Contains(c.View.ToImage(screen))
}

// overImage reports whether the screen point lies on the image content.
func (c *Controller) overImage(screen Point) bool {
	if !c.HasImage() {
		return false
	}
	p := c.View.ToImage(screen)
	return p.X >= 0 && p.Y >= 0 && p.X < c.imageSize.X && p.Y < c.imageSize.Y
}

// Press routes a pointer press to the gesture it starts. Secondary button
// with the zoom modifier draws a free selection; the primary button resizes
// on a handle, moves inside the box, and pans over empty canvas or anywhere
// while the pan modifier is held. It reports whether a gesture started.
func (c *Controller) Press(screen Point, b Button, mods Modifiers) bool {
	if !c.idle() {
		return false
	}
	switch b {
	case ButtonSecondary:
		if mods.Zoom {
			return c.BeginFreeSelection(screen)
		}
	case ButtonPrimary:
		if mods.Pan {
			return c.BeginPan(screen)
		}
		if h, body := c.HitTest(screen); h != HandleNone {
			return c.BeginResize(h, screen)
		} else if body {
			return c.BeginMove(screen)
		}
		if !c.overImage(screen) {
			return c.BeginPan(screen)
		}
	}
	return false
}

// BeginPan starts panning from the screen point.
func (c *Controller) BeginPan(screen Point) bool {
	if !c.idle() {
		return false
	}
	c.mode = Panning{Start: screen, Scroll: c.View.Scroll}
	return true
}

// BeginFreeSelection anchors a new box at the screen point. Freestyle is
// chosen when no ratio is active so that a box never exists without one.
func (c *Controller) BeginFreeSelection(screen Point) bool {
	if !c.idle() {
		return false
	}
	if c.ratio == nil {
		r, _ := LookupRatio(FreestyleID)
		c.ratio = &r
	}
	anchor := c.View.ToImage(screen)
	c.mode = Drawing{Anchor: anchor, Prev: c.box}
	b := Box{X: anchor.X, Y: anchor.Y}
	c.box = &b
	return true
}

// BeginMove starts dragging the box body.
func (c *Controller) BeginMove(screen Point) bool {
	if !c.idle() || c.box == nil {
		return false
	}
	c.mode = Moving{Last: screen}
	return true
}

// BeginResize starts dragging a corner handle.
func (c *Controller) BeginResize(h Handle, screen Point) bool {
	if !c.idle() || c.box == nil || c.ratio == nil || h == HandleNone {
		return false
	}
	c.mode = Resizing{Handle: h, Last: screen}
	return true
}

// PointerMove advances the active gesture. It reports whether anything
// visible changed.
func (c *Controller) PointerMove(screen Point) bool {
	switch m := c.Mode().(type) {
	case Panning:
		c.View.Scroll = m.Scroll.Sub(screen.Sub(m.Start))
		return true
	case Drawing:
		b := BoxFromPoints(m.Anchor, c.View.ToImage(screen))
		c.box = &b
		return true
	case Moving:
		if c.box == nil {
			return false
		}
		b := c.box.Translate(ScaleDelta(screen.Sub(m.Last), c.View.Zoom))
		c.box = &b
		c.mode = Moving{Last: screen}
		return true
	case Resizing:
		if c.box == nil || c.ratio == nil {
			return false
		}
		d := ScaleDelta(screen.Sub(m.Last), c.View.Zoom)
		c.mode = Resizing{Handle: m.Handle, Last: screen}
		b, ok := Resize(*c.box, *c.ratio, m.Handle, d)
		if ok {
			c.box = &b
		}
		return ok
	}
	return false
}

// PointerUp ends the active gesture; the box stays.
func (c *Controller) PointerUp() {
	if m, ok := c.Mode().(Drawing); ok && c.box != nil && c.box.Empty() {
		c.box = m.Prev
	}
	c.mode = Idle{}
}

// PointerLeave ends any gesture when the pointer leaves the canvas. A free
// selection still being drawn is discarded.
func (c *Controller) PointerLeave() {
	if m, ok := c.Mode().(Drawing); ok {
		c.box = m.Prev
	}
	c.mode = Idle{}
}

// Wheel handles a wheel notch. With the zoom modifier it changes the zoom by
// one step per notch; otherwise it scrolls vertically by deltaY pixels.
func (c *Controller) Wheel(deltaY float64, mods Modifiers) bool {
	if mods.Zoom {
		switch {
		case deltaY < 0:
			return c.View.ZoomBy(1)
		case deltaY > 0:
			return c.View.ZoomBy(-1)
		}
		return false
	}
	if deltaY == 0 {
		return false
	}
	c.View.Scroll.Y += deltaY
	return true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
