package appstate

import (
	"context"
	"image"
	"image/draw"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/theme"
)

// DrawSelection returns a copy of img with the selection overlay drawn at
// box, the way the canvas window shows it at 100% zoom.
func DrawSelection(img image.Image, box canvas.Box, th *theme.Theme) *image.RGBA {
	if th == nil {
		th = theme.Default()
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	if !box.Empty() {
		drawSelection(out, th, screenRect(canvas.NewViewport(), image.Point{}, box))
	}
	return out
}

// RenderWindow paints one frame of a's window without opening it, for
// headless previews.
func RenderWindow(a *AppState, width, height int) *image.RGBA {
	a.resize(width, height)
	st := a.snapshot(width, height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	p := &painter{}
	p.render(context.Background(), dst, st)
	return dst
}
