package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrRecording is returned by Start while a dictation is running.
	ErrRecording = errors.New("already recording")
	// ErrNotRecording is returned by Finish without a running dictation.
	ErrNotRecording = errors.New("not recording")
)

type recording struct {
	audio []byte
	err   error
}

// Dictation records a single prompt from the microphone and transcribes it
// when stopped.
type Dictation struct {
	Recorder    Recorder
	Transcriber Transcriber

	mu     sync.Mutex
	cancel context.CancelFunc
	result chan recording
}

// Recording reports whether a dictation is in progress.
func (d *Dictation) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Start begins recording in the background.
func (d *Dictation) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrRecording
	}
	if d.Recorder == nil || d.Transcriber == nil {
		return ErrNoCommand
	}
	ctx, cancel := context.WithCancel(ctx)
	result := make(chan recording, 1)
	d.cancel = cancel
	d.result = result
	go func() {
		audio, err := d.Recorder.Record(ctx)
		if err != nil && ctx.Err() != nil && len(audio) == 0 {
			err = fmt.Errorf("no audio captured: %w", err)
		}
		result <- recording{audio, err}
	}()
	return nil
}

// Finish stops recording and returns the transcript.
func (d *Dictation) Finish(ctx context.Context) (string, error) {
	d.mu.Lock()
	cancel, result := d.cancel, d.result
	d.cancel, d.result = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return "", ErrNotRecording
	}
	cancel()
	rec := <-result
	if rec.err != nil {
		return "", rec.err
	}
	return d.Transcriber.Transcribe(ctx, rec.audio, "recording.wav")
}

// Cancel stops recording and discards the audio.
func (d *Dictation) Cancel() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel, d.result = nil, nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
