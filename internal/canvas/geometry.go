package canvas

import (
	"fmt"
	"image"
	"math"
)

const (
	// MinBoxSize is the smallest width or height, in image pixels, a resize
	// may produce.
	MinBoxSize = 50
	// DefaultBoxWidth is the width of a box created by choosing an aspect
	// ratio.
	DefaultBoxWidth = 300
	// freestyleDefaultHeight is used instead of width/ratio for freestyle.
	freestyleDefaultHeight = 200
)

// Box is an axis-aligned selection rectangle in image space.
type Box struct {
	X, Y, Width, Height float64
}

// Min returns the top-left corner.
func (b Box) Min() Point { return Point{b.X, b.Y} }

// Max returns the bottom-right corner.
func (b Box) Max() Point { return Point{b.X + b.Width, b.Y + b.Height} }

// Empty reports whether the box has no area.
func (b Box) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// Ratio returns width/height, or 0 for an empty box.
func (b Box) Ratio() float64 {
	if b.Height <= 0 {
		return 0
	}
	return b.Width / b.Height
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Translate returns the box moved by d.
func (b Box) Translate(d Point) Box {
	b.X += d.X
	b.Y += d.Y
	return b
}

// Rect rounds the box to whole pixels.
func (b Box) Rect() image.Rectangle {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	return image.Rect(x0, y0, x0+int(math.Round(b.Width)), y0+int(math.Round(b.Height)))
}

func (b Box) String() string {
	return fmt.Sprintf("%.0f,%.0f %.0fx%.0f", b.X, b.Y, b.Width, b.Height)
}

// BoxFromPoints spans the rectangle between two corners in either order.
func BoxFromPoints(a, c Point) Box {
	return Box{
		X:      math.Min(a.X, c.X),
		Y:      math.Min(a.Y, c.Y),
		Width:  math.Abs(c.X - a.X),
		Height: math.Abs(c.Y - a.Y),
	}
}

// FreestyleID is the aspect ratio id that unlocks width and height.
const FreestyleID = "freestyle"

// AspectRatio is a width/height constraint for the selection box.
type AspectRatio struct {
	ID    string
	Name  string
	Ratio float64
}

// Freestyle reports whether r lets width and height vary independently.
func (r AspectRatio) Freestyle() bool { return r.ID == FreestyleID }

var aspectRatios = []AspectRatio{
	{ID: "square", Name: "1:1 (Square)", Ratio: 1},
	{ID: "portrait", Name: "3:4 (Portrait full screen)", Ratio: 3.0 / 4.0},
	{ID: "fullscreen", Name: "4:3 (Fullscreen)", Ratio: 4.0 / 3.0},
	{ID: "mobile", Name: "9:16 (Portrait, common for mobile)", Ratio: 9.0 / 16.0},
	{ID: "widescreen", Name: "16:9 (Widescreen)", Ratio: 16.0 / 9.0},
	{ID: FreestyleID, Name: "Freestyle", Ratio: 0},
}

// AspectRatios returns a copy of the selectable ratios in display order.
func AspectRatios() []AspectRatio {
	out := make([]AspectRatio, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

// LookupRatio finds a preset by id.
func LookupRatio(id string) (AspectRatio, bool) {
	for _, r := range aspectRatios {
		if r.ID == id {
			return r, true
		}
	}
	return AspectRatio{}, false
}

// DefaultBox returns the box created when r is chosen, centred on center.
func DefaultBox(r AspectRatio, center Point) Box {
	w := float64(DefaultBoxWidth)
	h := float64(freestyleDefaultHeight)
	if !r.Freestyle() && r.Ratio > 0 {
		h = w / r.Ratio
	}
	return Box{X: center.X - w/2, Y: center.Y - h/2, Width: w, Height: h}
}

// Handle identifies a corner of the selection box.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleBottomRight:
		return "bottom-right"
	}
	return "none"
}

// Resize applies an image-space pointer delta to b while dragging handle h.
//
// For fixed ratios only the horizontal delta matters: the width follows the
// pointer and the height is derived from it, with the corner opposite h
// pinned. Freestyle moves each dragged edge independently. A change that
// shrinks either dimension to below MinBoxSize is rejected and b is
// returned unchanged with ok=false; growing is always allowed.
func Resize(b Box, r AspectRatio, h Handle, d Point) (out Box, ok bool) {
	out = b
	if r.Freestyle() {
		switch h {
		case HandleTopLeft:
			out.X, out.Width = b.X+d.X, b.Width-d.X
			out.Y, out.Height = b.Y+d.Y, b.Height-d.Y
		case HandleTopRight:
			out.Width = b.Width + d.X
			out.Y, out.Height = b.Y+d.Y, b.Height-d.Y
		case HandleBottomLeft:
			out.X, out.Width = b.X+d.X, b.Width-d.X
			out.Height = b.Height + d.Y
		case HandleBottomRight:
			out.Width = b.Width + d.X
			out.Height = b.Height + d.Y
		default:
			return b, false
		}
	} else {
		if r.Ratio <= 0 {
			return b, false
		}
		switch h {
		case HandleTopLeft:
			out.Width = b.Width - d.X
			out.Height = out.Width / r.Ratio
			out.X = b.X + d.X
			out.Y = b.Y + (b.Height - out.Height)
		case HandleTopRight:
			out.Width = b.Width + d.X
			out.Height = out.Width / r.Ratio
			out.Y = b.Y + (b.Height - out.Height)
		case HandleBottomLeft:
			out.Width = b.Width - d.X
			out.Height = out.Width / r.Ratio
			out.X = b.X + d.X
		case HandleBottomRight:
			out.Width = b.Width + d.X
			out.Height = out.Width / r.Ratio
		default:
			return b, false
		}
	}
	if shrinksBelowMin(out.Width, b.Width) || shrinksBelowMin(out.Height, b.Height) {
		return b, false
	}
	return out, true
}

// shrinksBelowMin reports whether a dimension changing from was to now
// crosses or stays under MinBoxSize while getting smaller. A box drawn
// smaller than the floor can still be grown back through it.
func shrinksBelowMin(now, was float64) bool {
	return now < MinBoxSize && now < was
}
