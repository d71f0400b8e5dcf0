package voice

import (
	"strings"
	"sync"
	"time"
)

// DefaultQuietPeriod is the trailing silence that ends an utterance.
const DefaultQuietPeriod = 2 * time.Second

// SilenceDetector joins recognition results into utterances. Every result
// restarts the quiet timer; when it expires the accumulated text is passed
// to the callback.
type SilenceDetector struct {
	quiet  time.Duration
	onDone func(string)

	mu      sync.Mutex
	final   []string
	interim string
	timer   *time.Timer
	seq     int
	stopped bool
}

// NewSilenceDetector returns a detector calling onDone with each finished
// utterance. A non-positive quiet uses DefaultQuietPeriod.
func NewSilenceDetector(quiet time.Duration, onDone func(string)) *SilenceDetector {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &SilenceDetector{quiet: quiet, onDone: onDone}
}

// Result records a recognition result and returns the full transcript of
// the utterance so far, for display.
func (d *SilenceDetector) Result(text string, final bool) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ""
	}
	text = strings.TrimSpace(text)
	if final {
		if text != "" {
			d.final = append(d.final, text)
		}
		d.interim = ""
	} else {
		d.interim = text
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.quiet, func() { d.flush(seq) })
	return d.joinLocked()
}

func (d *SilenceDetector) joinLocked() string {
	parts := d.final
	if d.interim != "" {
		parts = append(parts[:len(parts):len(parts)], d.interim)
	}
	return strings.Join(parts, " ")
}

// Flush ends the current utterance immediately. Interim text not yet
// confirmed is included.
func (d *SilenceDetector) Flush() { d.flush(-1) }

// flush ends the utterance; a timer passes its seq so that one superseded
// by a newer result does nothing.
func (d *SilenceDetector) flush(seq int) {
	d.mu.Lock()
	if d.stopped || (seq >= 0 && seq != d.seq) {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	text := d.joinLocked()
	d.final = nil
	d.interim = ""
	d.mu.Unlock()
	if text != "" && d.onDone != nil {
		d.onDone(text)
	}
}

// Stop discards pending text and disables the detector.
func (d *SilenceDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.final = nil
	d.interim = ""
}
