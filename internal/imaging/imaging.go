// Package imaging decodes canvas payloads and performs the region
// extraction and compositing used by the transformation pipeline.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"mime"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxUploadSize is the largest accepted upload in bytes.
const MaxUploadSize = 5 << 20

var uploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var (
	ErrUnsupportedType = errors.New("please upload a valid image file (JPEG, PNG, GIF, or WebP)")
	ErrTooLarge        = errors.New("image file is too large, please upload an image smaller than 5MB")
	ErrEmptyRegion     = errors.New("selection does not overlap the image")
)

// ValidateUpload checks an uploaded file's type and size. When mimeType is
// empty it is guessed from the file name.
func ValidateUpload(name, mimeType string, size int) error {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if !uploadTypes[strings.ToLower(mimeType)] {
		return ErrUnsupportedType
	}
	if size > MaxUploadSize {
		return ErrTooLarge
	}
	return nil
}

// DataURL wraps data as a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL returns the media type and payload of a base64 data URL.
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data url without payload")
	}
	mediaType, isB64 := strings.CutSuffix(meta, ";base64")
	if !isB64 {
		return "", nil, fmt.Errorf("data url is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mediaType, data, nil
}

// Decode turns an encoded image or data URL into RGBA.
func Decode(payload []byte) (*image.RGBA, error) {
	if bytes.HasPrefix(payload, []byte("data:")) {
		_, data, err := ParseDataURL(string(payload))
		if err != nil {
			return nil, err
		}
		payload = data
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img into an RGBA image with its origin at 0,0.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Size returns the pixel dimensions of an encoded image without decoding
// the pixels.
func Size(payload []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Extract copies r out of img into a standalone r.Dx() x r.Dy() image. Parts
// of r outside the image are left transparent, so the result always has the
// box's shape and Composite with the same r puts every pixel back in place.
func Extract(img image.Image, r image.Rectangle) (*image.RGBA, error) {
	if r.Empty() || !r.Overlaps(img.Bounds()) {
		return nil, ErrEmptyRegion
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	dst := r.Intersect(img.Bounds())
	draw.Draw(out, dst.Sub(r.Min), img, dst.Min, draw.Src)
	return out, nil
}

// ExtractPNG is Extract followed by EncodePNG.
func ExtractPNG(img image.Image, r image.Rectangle) ([]byte, error) {
	sub, err := Extract(img, r)
	if err != nil {
		return nil, err
	}
	return EncodePNG(sub)
}

// Composite returns a copy of original with region scaled into r. Pixels
// outside r are untouched. Any part of r outside the original is dropped.
func Composite(original, region image.Image, r image.Rectangle) *image.RGBA {
	b := original.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), original, b.Min, draw.Src)
	if r.Empty() {
		return out
	}
	rb := region.Bounds()
	if rb.Dx() == r.Dx() && rb.Dy() == r.Dy() {
		draw.Draw(out, r, region, rb.Min, draw.Over)
		return out
	}
	scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), region, rb, draw.Src, nil)
	draw.Draw(out, r, scaled, image.Point{}, draw.Over)
	return out
}

// Fill returns a w x h image of a single colour.
func Fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
