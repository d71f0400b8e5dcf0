// Package render builds presentation images from canvas entries: an export
// framed by a soft drop shadow and before/after comparisons of a
// transformation.
package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/example/pixie/internal/imaging"
)

// ShadowOptions configures the drop shadow effect applied to an image.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions returns a soft shadow that suits website captures.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{
		Radius:  16,
		Offset:  image.Pt(0, 8),
		Opacity: 0.35,
	}
}

// Shadow composites img over a blurred copy of its alpha on a transparent
// canvas large enough to hold both. The returned point is where img's
// top-left corner landed. A non-positive opacity returns img unchanged.
func Shadow(src image.Image, opts ShadowOptions) (*image.RGBA, image.Point) {
	img := imaging.ToRGBA(src)
	if img.Bounds().Empty() || opts.Opacity <= 0 {
		return img, image.Point{}
	}
	opacity := min(opts.Opacity, 1)
	radius := max(opts.Radius, 0)

	srcBounds := img.Bounds()
	padded := srcBounds.Inset(-radius)
	shadowBounds := padded.Add(opts.Offset)
	composite := srcBounds.Union(shadowBounds)

	mask := image.NewGray(padded.Sub(padded.Min))
	for y := srcBounds.Min.Y; y < srcBounds.Max.Y; y++ {
		for x := srcBounds.Min.X; x < srcBounds.Max.X; x++ {
			if a := img.RGBAAt(x, y).A; a != 0 {
				mask.SetGray(x-padded.Min.X, y-padded.Min.Y, color.Gray{Y: a})
			}
		}
	}
	blurred := blurGray(mask, radius)

	dst := image.NewRGBA(composite.Sub(composite.Min))
	origin := shadowBounds.Min.Sub(composite.Min)
	if alpha := uint8(opacity*255 + 0.5); alpha > 0 {
		draw.DrawMask(dst, blurred.Bounds().Add(origin), image.NewUniform(color.RGBA{A: alpha}), image.Point{}, blurred, image.Point{}, draw.Over)
	}
	at := srcBounds.Min.Sub(composite.Min)
	draw.Draw(dst, srcBounds.Sub(composite.Min), img, srcBounds.Min, draw.Over)
	return dst, at
}

// Compare places before and after side by side, top aligned, separated by
// gap pixels of bg.
func Compare(before, after image.Image, gap int, bg color.Color) *image.RGBA {
	bb, ab := before.Bounds(), after.Bounds()
	gap = max(gap, 0)
	out := image.NewRGBA(image.Rect(0, 0, bb.Dx()+gap+ab.Dx(), max(bb.Dy(), ab.Dy())))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, bb.Dx(), bb.Dy()), before, bb.Min, draw.Over)
	draw.Draw(out, image.Rect(bb.Dx()+gap, 0, bb.Dx()+gap+ab.Dx(), ab.Dy()), after, ab.Min, draw.Over)
	return out
}

// blurGray is a separable box blur using running prefix sums per row and
// column.
func blurGray(src *image.Gray, radius int) *image.Gray {
	out := image.NewGray(src.Bounds())
	if radius <= 0 {
		copy(out.Pix, src.Pix)
		return out
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	tmp := image.NewGray(src.Bounds())
	boxPass(w, h, radius, func(i, j int) int { return int(src.Pix[j*src.Stride+i]) }, func(i, j int, v uint8) { tmp.Pix[j*tmp.Stride+i] = v })
	boxPass(h, w, radius, func(i, j int) int { return int(tmp.Pix[i*tmp.Stride+j]) }, func(i, j int, v uint8) { out.Pix[i*out.Stride+j] = v })
	return out
}

// boxPass averages along lines of length n, for each of lines lines. get
// and set address sample i of line j.
func boxPass(n, lines, radius int, get func(i, j int) int, set func(i, j int, v uint8)) {
	prefix := make([]int, n+1)
	for j := 0; j < lines; j++ {
		for i := 0; i < n; i++ {
			prefix[i+1] = prefix[i] + get(i, j)
		}
		for i := 0; i < n; i++ {
			lo := max(i-radius, 0)
			hi := min(i+radius, n-1)
			set(i, j, uint8((prefix[hi+1]-prefix[lo])/(hi-lo+1)))
		}
	}
}
