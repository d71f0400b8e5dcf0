// Package transform runs one regional image transformation from a canvas
// snapshot to a committed history entry.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/history"
	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/remote"
)

var (
	// ErrBusy is returned while another run is in flight.
	ErrBusy = errors.New("a transformation is already in progress")
	// ErrMissingInput is returned when the snapshot lacks an image,
	// selection, aspect ratio or prompt.
	ErrMissingInput = errors.New("image, selection, aspect ratio and prompt are required")
)

// Applier sends a region to the transformation service.
type Applier interface {
	Apply(ctx context.Context, req remote.ApplyRequest) ([]byte, error)
}

// Snapshot is everything a run needs, captured when the user submits.
// The pipeline never reads canvas or session state after Run starts.
type Snapshot struct {
	Image     []byte
	BaseID    string // history entry the image came from
	Box       canvas.Box
	Ratio     canvas.AspectRatio
	Prompt    string
	Reference []byte
	Model     string
}

func (s Snapshot) complete() bool {
	return len(s.Image) > 0 && !s.Box.Empty() && s.Ratio.ID != "" && strings.TrimSpace(s.Prompt) != ""
}

// Pipeline turns snapshots into history entries. At most one Run executes
// at a time.
type Pipeline struct {
	Client  Applier
	History *history.Store
	Now     func() time.Time
	Logger  *slog.Logger

	busy atomic.Bool
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Busy reports whether a run is in flight.
func (p *Pipeline) Busy() bool { return p.busy.Load() }

// Run extracts the selected region, sends it to the service, composites the
// result over the full image and appends it to the history. On any error
// the history is left untouched.
func (p *Pipeline) Run(ctx context.Context, snap Snapshot) (history.ImageState, error) {
	if !snap.complete() {
		return history.ImageState{}, ErrMissingInput
	}
	if !p.busy.CompareAndSwap(false, true) {
		return history.ImageState{}, ErrBusy
	}
	defer p.busy.Store(false)

	original, err := imaging.Decode(snap.Image)
	if err != nil {
		return history.ImageState{}, err
	}
	rect := snap.Box.Rect()
	region, err := imaging.ExtractPNG(original, rect)
	if err != nil {
		return history.ImageState{}, err
	}

	started := p.now()
	prompt := strings.TrimSpace(snap.Prompt)
	req := remote.ApplyRequest{
		Prompt:      prompt,
		Image:       region,
		AspectRatio: EffectiveAspectRatio(snap.Ratio, snap.Box),
		Model:       snap.Model,
		RequestID:   NewRequestID(started),
		Reference:   snap.Reference,
	}
	log := p.logger().With("request_id", req.RequestID)
	log.Info("transform: start", "box", snap.Box.String(), "aspect_ratio", req.AspectRatio)

	out, err := p.Client.Apply(ctx, req)
	if err != nil {
		log.Warn("transform: apply failed", "error", err)
		return history.ImageState{}, err
	}
	result, err := imaging.Decode(out)
	if err != nil {
		return history.ImageState{}, fmt.Errorf("transformed image: %w", err)
	}
	merged, err := imaging.EncodePNG(imaging.Composite(original, result, rect))
	if err != nil {
		return history.ImageState{}, err
	}

	entry := history.NewTransform(merged, prompt, req.RequestID, snap.Reference, p.now())
	idx, err := p.appendEntry(snap.BaseID, entry)
	if err != nil {
		log.Warn("transform: result discarded", "error", err)
		return history.ImageState{}, err
	}
	log.Info("transform: committed", "history_index", idx, "took", time.Since(started))
	return entry, nil
}

func (p *Pipeline) appendEntry(base string, e history.ImageState) (int, error) {
	if base == "" {
		return p.History.Append(e), nil
	}
	return p.History.AppendAfter(base, e)
}

// EffectiveAspectRatio is the "<ratio>:1" value sent with a request. Fixed
// ratios send their nominal value; freestyle sends the box's own ratio.
func EffectiveAspectRatio(r canvas.AspectRatio, b canvas.Box) string {
	v := r.Ratio
	if r.Freestyle() {
		v = b.Ratio()
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + ":1"
}

// NewRequestID returns the idempotency id for a run started at t.
func NewRequestID(t time.Time) string {
	return "pixie_" + strconv.FormatInt(t.UnixMilli(), 10)
}
