package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Config wires the orchestrator's capabilities.
type Config struct {
	Recognizer  Recognizer
	Speaker     Speaker
	Transformer Transformer

	// Acknowledge picks the phrase spoken while a transformation runs;
	// Respond picks completions and apologies.
	Acknowledge Chooser
	Respond     Chooser
	Phrases     Phrases

	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Acknowledge == nil {
		c.Acknowledge = &RoundRobin{}
	}
	if c.Respond == nil {
		c.Respond = Random{}
	}
	if len(c.Phrases.Acknowledgements) == 0 && len(c.Phrases.Completions) == 0 && len(c.Phrases.Apologies) == 0 {
		c.Phrases = DefaultPhrases()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Orchestrator is the live voice session. Its methods are safe for
// concurrent use; handlers run on the orchestrator's own goroutine.
type Orchestrator struct {
	cfg Config

	mu         sync.Mutex
	state      State
	transcript string
	history    []Message
	listeners  []func(State)

	gen        uint64 // bumped by Start and Stop; stale work checks it
	cancel     context.CancelFunc
	utterances chan string
	done       chan struct{}
}

// New returns an idle orchestrator.
func New(cfg Config) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{cfg: cfg}
}

// OnStateChange registers f to be called after every transition.
func (o *Orchestrator) OnStateChange(f func(State)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, f)
	o.mu.Unlock()
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Active reports whether a session is running.
func (o *Orchestrator) Active() bool { return o.State() != Idle }

// Transcript returns the live transcript of the utterance being spoken.
func (o *Orchestrator) Transcript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript
}

// History returns a copy of the conversation so far.
func (o *Orchestrator) History() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.history))
	copy(out, o.history)
	return out
}

// Start begins listening. A running session is stopped first so that only
// one recognizer is ever active.
func (o *Orchestrator) Start(ctx context.Context, pre Preconditions) error {
	if err := pre.Check(); err != nil {
		return err
	}
	if o.cfg.Recognizer == nil {
		return ErrRecognitionUnsupported
	}
	o.Stop()

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.cancel = cancel
	o.utterances = make(chan string, 1)
	o.done = make(chan struct{})
	o.history = nil
	o.transcript = ""
	utterances, done := o.utterances, o.done
	o.mu.Unlock()

	err := o.cfg.Recognizer.Start(ctx, Handlers{
		Interim: func(text string) { o.setTranscript(gen, text) },
		Final:   func(text string) { o.deliver(gen, text) },
		Error: func(err error) {
			o.cfg.Logger.Warn("voice: recognition error", "error", err)
		},
	})
	if err != nil {
		cancel()
		o.mu.Lock()
		if o.gen == gen {
			o.cancel = nil
		}
		o.mu.Unlock()
		close(done)
		return err
	}

	go o.loop(ctx, gen, utterances, done)
	o.setState(gen, Listening)
	o.cfg.Logger.Info("voice: listening")
	return nil
}

// Stop tears down recognition and playback and returns to Idle from any
// state. Work still in flight is abandoned.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.gen++
	gen := o.gen
	o.transcript = ""
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	o.cfg.Recognizer.Stop()
	if o.cfg.Speaker != nil {
		o.cfg.Speaker.Stop()
	}
	o.setState(gen, Idle)
	o.cfg.Logger.Info("voice: stopped")
}

// Wait blocks until the loop of the current session has exited.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) loop(ctx context.Context, gen uint64, utterances <-chan string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-utterances:
			o.handle(ctx, gen, text)
		}
	}
}

// deliver hands a final utterance to the loop. Utterances heard while the
// loop is busy, including our own speech, are dropped.
func (o *Orchestrator) deliver(gen uint64, text string) {
	text = strings.TrimSpace(text)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen || o.state != Listening || text == "" {
		return
	}
	select {
	case o.utterances <- text:
	default:
	}
}

func (o *Orchestrator) handle(ctx context.Context, gen uint64, text string) {
	o.setState(gen, Thinking)
	o.record(gen, RoleUser, text)
	o.setTranscript(gen, "")

	if c := Classify(text); c.NeedsClarification {
		o.reply(ctx, gen, c.Question)
		o.setState(gen, Listening)
		return
	}

	o.setState(gen, Transforming)
	ack := o.cfg.Acknowledge.Choose(o.cfg.Phrases.Acknowledgements)
	acked := make(chan struct{})
	go func() {
		defer close(acked)
		o.speak(ctx, ack)
	}()

	err := o.cfg.Transformer.Transform(ctx, text)
	<-acked
	if ctx.Err() != nil {
		return
	}

	pool := o.cfg.Phrases.Completions
	if err != nil {
		o.cfg.Logger.Warn("voice: transform failed", "prompt", text, "error", err)
		pool = o.cfg.Phrases.Apologies
	}
	o.reply(ctx, gen, o.cfg.Respond.Choose(pool))
	o.setState(gen, Listening)
}

// reply speaks text and records it as the assistant's turn.
func (o *Orchestrator) reply(ctx context.Context, gen uint64, text string) {
	o.setState(gen, Speaking)
	o.record(gen, RoleAssistant, text)
	o.speak(ctx, text)
}

func (o *Orchestrator) speak(ctx context.Context, text string) {
	if o.cfg.Speaker == nil || text == "" {
		return
	}
	if err := o.cfg.Speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		o.cfg.Logger.Warn("voice: speak failed", "error", err)
	}
}

func (o *Orchestrator) record(gen uint64, role Role, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return
	}
	o.history = append(o.history, Message{Role: role, Content: text, Timestamp: o.cfg.Now()})
}

func (o *Orchestrator) setTranscript(gen uint64, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen == gen {
		o.transcript = text
	}
}

func (o *Orchestrator) setState(gen uint64, s State) {
	o.mu.Lock()
	if o.gen != gen || o.state == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	listeners := append([]func(State){}, o.listeners...)
	o.mu.Unlock()
	for _, f := range listeners {
		f(s)
	}
}
