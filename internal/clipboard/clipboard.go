// Package clipboard moves canvas images and text through the system
// clipboard. Images travel as PNG bytes.
package clipboard

import (
	"bytes"
	"errors"
)

var (
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	errNoImage   = errors.New("clipboard does not contain image data")
	errNoText    = errors.New("clipboard does not contain text data")
	errNotPNG    = errors.New("clipboard image is not PNG data")
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func isPNG(data []byte) bool { return bytes.HasPrefix(data, pngMagic) }
