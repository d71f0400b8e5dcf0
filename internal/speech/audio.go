package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNoCommand is returned when an audio command line is empty.
var ErrNoCommand = errors.New("audio command is not configured")

// Recorder captures audio until ctx is done or the source ends.
type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
}

// Player plays one clip at a time.
type Player interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

func splitCommand(line string) ([]string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	return args, nil
}

// CommandRecorder runs an external program that writes audio to stdout,
// e.g. "arecord -q -f S16_LE -r 16000 -c 1 -t wav".
type CommandRecorder struct {
	Command string
}

// Record runs the command until it exits or ctx is done. Cancelling ctx
// is the normal way to end a recording; whatever was captured is returned.
func (r *CommandRecorder) Record(ctx context.Context) ([]byte, error) {
	args, err := splitCommand(r.Command)
	if err != nil {
		return nil, err
	}
	var out, stderr bytes.Buffer
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder: %w", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("recorder exited: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return out.Bytes(), nil
	case <-ctx.Done():
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			_ = cmd.Process.Kill()
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			_ = cmd.Process.Kill()
			<-done
		}
		if out.Len() == 0 {
			return nil, ctx.Err()
		}
		return out.Bytes(), nil
	}
}

// CommandPlayer pipes audio into an external program, e.g.
// "ffplay -autoexit -nodisp -loglevel quiet -".
type CommandPlayer struct {
	Command string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Play stops any clip already playing, then blocks until this one ends.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	args, err := splitCommand(p.Command)
	if err != nil {
		return err
	}
	p.Stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	err = cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("play audio: %w", err)
	}
	return nil
}

// Stop interrupts the clip being played, if any.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Speaker speaks text by synthesizing it and playing the result.
type Speaker struct {
	Synth  Synthesizer
	Player Player
}

func (s *Speaker) Speak(ctx context.Context, text string) error {
	audio, err := s.Synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.Player.Play(ctx, audio)
}

func (s *Speaker) Stop() { s.Player.Stop() }
