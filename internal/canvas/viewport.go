package canvas

import "math"

// Zoom limits are percentages.
const (
	MinZoom     = 25
	MaxZoom     = 200
	ZoomStep    = 25
	DefaultZoom = 100

	// fitPadding is the margin kept around an imported image when fitting it
	// into the visible canvas.
	fitPadding = 64
)

// Point is a position in either screen or image space; which one is
// determined by the caller.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Div returns p/k.
func (p Point) Div(k float64) Point { return Point{p.X / k, p.Y / k} }

// Mul returns p*k.
func (p Point) Mul(k float64) Point { return Point{p.X * k, p.Y * k} }

// Scale converts a zoom percentage into a multiplier. It never returns less
// than 0.01 so that divisions by the scale stay finite.
func Scale(zoom int) float64 {
	return math.Max(0.01, float64(zoom)/100)
}

// ToImage maps a point relative to the canvas' visible area into
// image-content space.
func ToImage(screen, scroll Point, zoom int) Point {
	return screen.Add(scroll).Div(Scale(zoom))
}

// ToScreen is the inverse of ToImage.
func ToScreen(img, scroll Point, zoom int) Point {
	return img.Mul(Scale(zoom)).Sub(scroll)
}

// ScaleDelta converts a pointer movement measured in screen pixels into the
// equivalent image-space movement.
func ScaleDelta(delta Point, zoom int) Point {
	return delta.Div(Scale(zoom))
}

// ClampZoom limits zoom to [MinZoom, MaxZoom].
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// FitZoom returns the zoom percentage that fits an image of imgW x imgH into
// a canvas of viewW x viewH. Images are only ever shrunk to fit, never
// enlarged, and the result stays within [MinZoom, DefaultZoom].
func FitZoom(imgW, imgH, viewW, viewH int) int {
	if imgW <= 0 || imgH <= 0 {
		return DefaultZoom
	}
	sx := float64(viewW-fitPadding) / float64(imgW)
	sy := float64(viewH-fitPadding) / float64(imgH)
	s := math.Min(math.Min(sx, sy), 1)
	z := math.Max(MinZoom, math.Min(DefaultZoom, s*100))
	return int(math.Round(z))
}

// Viewport is the zoom and scroll state of the canvas. Panning and zooming
// are not versioned; only image content goes through the history.
type Viewport struct {
	Zoom   int
	Scroll Point
}

// NewViewport returns a viewport at 100% with no scroll.
func NewViewport() Viewport { return Viewport{Zoom: DefaultZoom} }

// Scale returns the zoom multiplier.
func (v Viewport) Scale() float64 { return Scale(v.Zoom) }

// ToImage maps a visible-area point into image space.
func (v Viewport) ToImage(screen Point) Point { return ToImage(screen, v.Scroll, v.Zoom) }

// ToScreen maps an image-space point into the visible area.
func (v Viewport) ToScreen(img Point) Point { return ToScreen(img, v.Scroll, v.Zoom) }

// ZoomBy changes the zoom by steps*ZoomStep, clamped. It reports whether the
// zoom changed.
func (v *Viewport) ZoomBy(steps int) bool {
	z := ClampZoom(v.Zoom + steps*ZoomStep)
	if z == v.Zoom {
		return false
	}
	v.Zoom = z
	return true
}

// ResetZoom returns to 100%.
func (v *Viewport) ResetZoom() bool {
	if v.Zoom == DefaultZoom {
		return false
	}
	v.Zoom = DefaultZoom
	return true
}

// SetZoom sets an absolute zoom percentage, clamped.
func (v *Viewport) SetZoom(zoom int) {
	v.Zoom = ClampZoom(zoom)
}
