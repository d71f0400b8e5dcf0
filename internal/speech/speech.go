// Package speech provides speech-to-text and text-to-speech backends and
// the audio plumbing that feeds them.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/pixie/internal/config"
)

var (
	// ErrNoCredentials is returned when the selected provider has no key.
	ErrNoCredentials = errors.New("speech provider API key is not configured")
	// ErrEmptyTranscript is returned when a transcription has no text.
	ErrEmptyTranscript = errors.New("invalid response from speech-to-text service")
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Provider is a backend that can do both.
type Provider interface {
	Transcriber
	Synthesizer
}

// NewProvider builds the backend selected by cfg.Voice.Provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch strings.ToLower(cfg.Voice.Provider) {
	case "", config.ProviderElevenLabs:
		if cfg.Keys.ElevenLabs == "" {
			return nil, fmt.Errorf("elevenlabs: %w", ErrNoCredentials)
		}
		return &ElevenLabs{
			APIKey:   cfg.Keys.ElevenLabs,
			VoiceID:  cfg.Voice.VoiceID,
			Language: cfg.Voice.Language,
		}, nil
	case config.ProviderOpenAI:
		if cfg.Keys.OpenAI == "" {
			return nil, fmt.Errorf("openai: %w", ErrNoCredentials)
		}
		return NewOpenAI(cfg.Keys.OpenAI, cfg.Voice.Language), nil
	}
	return nil, fmt.Errorf("unknown speech provider %q", cfg.Voice.Provider)
}
