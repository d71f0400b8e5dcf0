package main

import (
	"errors"
	"os"

	"github.com/example/pixie/internal/config"
	"github.com/example/pixie/internal/notify"
	"github.com/example/pixie/internal/remote"
	"github.com/example/pixie/internal/screenshot"
	"github.com/example/pixie/internal/session"
	"github.com/example/pixie/internal/speech"
	"github.com/example/pixie/internal/voice"
)

// Constructors for the external services, replaced in tests.
var (
	newRemoteFn = func(cfg *config.Config) session.Remote {
		return remote.New(cfg.APIBaseURL, cfg.Keys.API)
	}
	newScreenshotsFn = func(cfg *config.Config) (screenshot.Service, func() error) {
		if cfg.Screenshot.Endpoint != "" {
			return screenshot.NewClient(cfg.Screenshot.Endpoint), func() error { return nil }
		}
		c := screenshot.NewCapturer(screenshot.Config{
			RemoteURL: cfg.Screenshot.RemoteBrowser,
			Width:     cfg.Screenshot.Width,
			Height:    cfg.Screenshot.Height,
			Timeout:   cfg.Screenshot.Timeout,
		})
		return c, c.Close
	}
	newSpeechFn = speech.NewProvider
)

func (r *root) cfg() *config.Config {
	if r == nil || r.config == nil {
		c := config.New()
		c.ApplyEnv(os.Getenv)
		return c
	}
	return r.config
}

// newSession wires a session to the transform API and screenshot service.
// The returned func releases the capture browser.
func (r *root) newSession() (*session.Session, func()) {
	cfg := r.cfg()
	shots, closeShots := newScreenshotsFn(cfg)
	s := session.New(session.Config{
		Remote:           newRemoteFn(cfg),
		Screenshots:      shots,
		Notifier:         r.notifierOrNil(),
		ImageModel:       cfg.ImageModel,
		CodeModel:        cfg.CodeModel,
		VoiceCredentials: r.voiceCredentials(),
		Logger:           r.log(),
	})
	return s, func() {
		if err := closeShots(); err != nil {
			r.log().Warn("pixie: closing screenshot browser", "error", err)
		}
	}
}

func (r *root) notifierOrNil() *notify.Notifier {
	if r == nil {
		return nil
	}
	return r.notifier
}

func (r *root) voiceCredentials() bool {
	cfg := r.cfg()
	switch cfg.Voice.Provider {
	case config.ProviderOpenAI:
		return cfg.Keys.OpenAI != ""
	default:
		return cfg.Keys.ElevenLabs != ""
	}
}

// voiceLoop builds live voice mode on top of the configured speech
// provider. It returns nil when no provider can be built; the window then
// reports voice mode as unavailable.
func (r *root) voiceLoop(sess *session.Session) *voice.Orchestrator {
	cfg := r.cfg()
	provider, err := newSpeechFn(cfg)
	if err != nil {
		if !errors.Is(err, speech.ErrNoCredentials) {
			r.log().Warn("pixie: speech provider unavailable", "error", err)
		}
		return nil
	}
	return voice.New(voice.Config{
		Recognizer: &speech.ChunkRecognizer{
			Recorder:    &speech.CommandRecorder{Command: cfg.Voice.Recorder},
			Transcriber: provider,
			Quiet:       cfg.Voice.QuietPeriod,
			Logger:      r.log(),
		},
		Speaker: &speech.Speaker{
			Synth:  provider,
			Player: &speech.CommandPlayer{Command: cfg.Voice.Player},
		},
		Transformer: sess,
		Logger:      r.log(),
	})
}

// dictation builds one-shot prompt dictation, or nil without a provider.
func (r *root) dictation() *speech.Dictation {
	cfg := r.cfg()
	provider, err := newSpeechFn(cfg)
	if err != nil {
		return nil
	}
	return &speech.Dictation{
		Recorder:    &speech.CommandRecorder{Command: cfg.Voice.Recorder},
		Transcriber: provider,
	}
}
