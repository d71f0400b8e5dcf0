package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/pixie/internal/voice"
)

// ChunkRecognizer provides continuous recognition on top of a clip
// recorder and a batch transcriber. Clips are recorded back to back and
// transcribed in order; a voice.SilenceDetector ends utterances once clips
// stop producing text.
type ChunkRecognizer struct {
	Recorder     Recorder
	Transcriber  Transcriber
	Clip         time.Duration // length of each recorded clip
	Quiet        time.Duration // silence that ends an utterance
	RestartDelay time.Duration // wait before restarting a failed recorder
	Logger       *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	detector *voice.SilenceDetector
	wg       sync.WaitGroup
}

func (r *ChunkRecognizer) defaults() {
	if r.Clip <= 0 {
		r.Clip = 4 * time.Second
	}
	if r.RestartDelay <= 0 {
		r.RestartDelay = 100 * time.Millisecond
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
}

// Start begins recognition. A previous session is stopped first.
func (r *ChunkRecognizer) Start(ctx context.Context, h voice.Handlers) error {
	if r.Recorder == nil || r.Transcriber == nil {
		return voice.ErrRecognitionUnsupported
	}
	r.Stop()
	r.defaults()

	ctx, cancel := context.WithCancel(ctx)
	final := h.Final
	if final == nil {
		final = func(string) {}
	}
	detector := voice.NewSilenceDetector(r.Quiet, final)

	r.mu.Lock()
	r.cancel = cancel
	r.detector = detector
	r.mu.Unlock()

	clips := make(chan []byte, 2)
	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer close(clips)
		r.record(ctx, clips, h)
	}()
	go func() {
		defer r.wg.Done()
		r.transcribe(ctx, clips, detector, h)
	}()
	return nil
}

// Stop ends recognition and waits for the workers to exit. Pending text is
// discarded.
func (r *ChunkRecognizer) Stop() {
	r.mu.Lock()
	cancel, detector := r.cancel, r.detector
	r.cancel, r.detector = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	detector.Stop()
	r.wg.Wait()
}

// record keeps the recorder running until ctx is done, restarting it after
// unexpected exits.
func (r *ChunkRecognizer) record(ctx context.Context, clips chan<- []byte, h voice.Handlers) {
	for ctx.Err() == nil {
		clipCtx, cancel := context.WithTimeout(ctx, r.Clip)
		audio, err := r.Recorder.Record(clipCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.Logger.Warn("speech: recorder failed, restarting", "error", err)
			report(h, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.RestartDelay):
			}
			continue
		}
		if len(audio) == 0 {
			continue
		}
		select {
		case clips <- audio:
		case <-ctx.Done():
			return
		}
	}
}

func (r *ChunkRecognizer) transcribe(ctx context.Context, clips <-chan []byte, d *voice.SilenceDetector, h voice.Handlers) {
	for audio := range clips {
		text, err := r.Transcriber.Transcribe(ctx, audio, "clip.wav")
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if err != ErrEmptyTranscript {
				report(h, err)
			}
			continue
		}
		shown := d.Result(text, true)
		if h.Interim != nil && shown != "" {
			h.Interim(shown)
		}
	}
}

func report(h voice.Handlers, err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
