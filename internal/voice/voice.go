// Package voice runs the hands-free conversation loop: listen for an
// utterance, decide whether it is actionable, transform the canvas while
// acknowledging, then speak the outcome and listen again.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotReady is returned by Start when a precondition is missing.
	ErrNotReady = errors.New("voice mode is not ready")
	// ErrRecognitionUnsupported is returned when no speech recognizer is
	// available.
	ErrRecognitionUnsupported = errors.New("speech recognition is not supported")
)

// State is the orchestrator's position in the conversation loop.
type State int

const (
	Idle State = iota
	Listening
	Thinking
	Transforming
	Speaking
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Thinking:
		return "thinking"
	case Transforming:
		return "transforming"
	case Speaking:
		return "speaking"
	}
	return "idle"
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Handlers receive recognition results. Interim text is for display only;
// Final delivers a complete utterance.
type Handlers struct {
	Interim func(text string)
	Final   func(text string)
	Error   func(err error)
}

// Recognizer is a continuous speech recognizer. Start returns once
// recognition is running; results arrive on the handlers until Stop or
// until ctx is done.
type Recognizer interface {
	Start(ctx context.Context, h Handlers) error
	Stop()
}

// Speaker plays synthesized speech. Speak blocks until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

// Transformer applies a prompt to the current canvas selection.
type Transformer interface {
	Transform(ctx context.Context, prompt string) error
}

// Preconditions describe what live mode needs before it can start.
type Preconditions struct {
	HasCredentials bool
	HasImage       bool
	HasSelection   bool // aspect ratio and box chosen
}

// Check returns ErrNotReady naming the first missing requirement.
func (p Preconditions) Check() error {
	var missing []string
	if !p.HasCredentials {
		missing = append(missing, "speech credentials")
	}
	if !p.HasImage {
		missing = append(missing, "an image")
	}
	if !p.HasSelection {
		missing = append(missing, "a selection")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: needs %s", ErrNotReady, strings.Join(missing, " and "))
}
