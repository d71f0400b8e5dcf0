package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/session"
)

var errNoSource = errors.New("one of -file or -url is required")

// loadSource makes file or url the session's current image.
func loadSource(ctx context.Context, sess *session.Session, file, url string) error {
	switch {
	case file != "" && url != "":
		return errors.New("-file and -url cannot be used together")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}
		if err := sess.Upload(filepath.Base(file), data); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	case url != "":
		if err := sess.ImportWebsite(ctx, url); err != nil {
			return fmt.Errorf("capture %s: %w", url, err)
		}
	default:
		return errNoSource
	}
	return nil
}

// currentImage decodes the session's current entry.
func currentImage(sess *session.Session) (*image.RGBA, error) {
	cur, ok := sess.History().Current()
	if !ok {
		return nil, errors.New("no image loaded")
	}
	return imaging.Decode(cur.Image)
}

// parseBox reads "x,y,w,h" in image pixels.
func parseBox(s string) (canvas.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return canvas.Box{}, fmt.Errorf("invalid box %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return canvas.Box{}, fmt.Errorf("invalid box %q: %w", s, err)
		}
		v[i] = f
	}
	b := canvas.Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if b.Empty() {
		return canvas.Box{}, fmt.Errorf("invalid box %q: width and height must be positive", s)
	}
	return b, nil
}

// selection resolves -ratio and -box against img. Without -box the default
// box for the ratio is centred on the image.
func selection(ratioID, box string, img image.Image) (canvas.AspectRatio, canvas.Box, error) {
	r, ok := canvas.LookupRatio(ratioID)
	if !ok {
		return canvas.AspectRatio{}, canvas.Box{}, fmt.Errorf("unknown aspect ratio %q (want %s)", ratioID, ratioIDs())
	}
	if box != "" {
		b, err := parseBox(box)
		return r, b, err
	}
	bounds := img.Bounds()
	center := canvas.Pt(float64(bounds.Dx())/2, float64(bounds.Dy())/2)
	return r, canvas.DefaultBox(r, center), nil
}

func ratioIDs() string {
	var ids []string
	for _, r := range canvas.AspectRatios() {
		ids = append(ids, r.ID)
	}
	return strings.Join(ids, ", ")
}

// writePNG writes img to path, or to stdout when path is "-".
func writePNG(path string, img image.Image) error {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
