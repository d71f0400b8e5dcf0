package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/example/pixie/internal/config"
	"github.com/example/pixie/internal/voice"
)

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "k" || r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("headers %v", r.Header)
		}
		var body struct {
			Text          string             `json:"text"`
			ModelID       string             `json:"model_id"`
			VoiceSettings map[string]float64 `json:"voice_settings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if body.Text != "Done!" || body.ModelID != "eleven_monolingual_v1" || body.VoiceSettings["stability"] != 0.5 {
			t.Errorf("body %+v", body)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	e := &ElevenLabs{APIKey: "k", VoiceID: "voice-1", BaseURL: srv.URL}
	audio, err := e.Synthesize(context.Background(), "Done!")
	if err != nil {
		t.Fatal(err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio %q", audio)
	}
}

func TestElevenLabsSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()
	e := &ElevenLabs{APIKey: "bad", BaseURL: srv.URL}
	_, err := e.Synthesize(context.Background(), "hi")
	if err == nil || err.Error() != "text-to-speech failed: invalid api key" {
		t.Fatalf("got %v", err)
	}
}

func TestElevenLabsTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text" {
			t.Errorf("path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
			return
		}
		if r.FormValue("model_id") != "scribe_v1" || r.FormValue("language_code") != "eng" {
			t.Errorf("fields %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "clip.wav" || string(data) != "RIFF" {
			t.Errorf("file %s %q", hdr.Filename, data)
		}
		w.Write([]byte(`{"text":"make it blue"}`))
	}))
	defer srv.Close()

	e := &ElevenLabs{APIKey: "k", BaseURL: srv.URL}
	text, err := e.Transcribe(context.Background(), []byte("RIFF"), "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	if text != "make it blue" {
		t.Fatalf("text %q", text)
	}
}

func TestElevenLabsTranscribeErrors(t *testing.T) {
	status := http.StatusBadRequest
	body := `{"detail":{"message":"bad audio"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()
	e := &ElevenLabs{APIKey: "k", BaseURL: srv.URL}

	_, err := e.Transcribe(context.Background(), []byte("x"), "a.wav")
	if err == nil || err.Error() != `failed to convert speech to text: {"message":"bad audio"}` {
		t.Fatalf("got %v", err)
	}

	status, body = http.StatusOK, `{"text":""}`
	if _, err := e.Transcribe(context.Background(), []byte("x"), "a.wav"); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("got %v", err)
	}
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth %q", r.Header.Get("Authorization"))
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart: %v", err)
				return
			}
			if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" {
				t.Errorf("fields %v", r.MultipartForm.Value)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"text":"add a logo"}`))
		case strings.HasSuffix(r.URL.Path, "/audio/speech"):
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["model"] != "tts-1" || body["voice"] != "alloy" || body["input"] != "On it." {
				t.Errorf("speech body %v", body)
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("mp3"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOpenAI("sk-test", "en", option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	text, err := o.Transcribe(context.Background(), []byte("RIFF"), "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	if text != "add a logo" {
		t.Fatalf("text %q", text)
	}
	audio, err := o.Synthesize(context.Background(), "On it.")
	if err != nil {
		t.Fatal(err)
	}
	if string(audio) != "mp3" {
		t.Fatalf("audio %q", audio)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.New()
	if _, err := NewProvider(cfg); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("got %v", err)
	}
	cfg.Keys.ElevenLabs = "el"
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := p.(*ElevenLabs); !ok || e.VoiceID != config.DefaultVoiceID {
		t.Fatalf("provider %#v", p)
	}
	cfg.Voice.Provider = config.ProviderOpenAI
	if _, err := NewProvider(cfg); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("got %v", err)
	}
	cfg.Keys.OpenAI = "sk"
	if p, err := NewProvider(cfg); err != nil {
		t.Fatal(err)
	} else if _, ok := p.(*OpenAI); !ok {
		t.Fatalf("provider %#v", p)
	}
	cfg.Voice.Provider = "espeak"
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestCommandRecorder(t *testing.T) {
	r := &CommandRecorder{Command: "echo hello"}
	out, err := r.Record(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello\n" {
		t.Fatalf("out %q", out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r = &CommandRecorder{Command: "sleep 5"}
	start := time.Now()
	if _, err := r.Record(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("recorder was not stopped")
	}

	if _, err := (&CommandRecorder{}).Record(context.Background()); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("got %v", err)
	}
}

func TestCommandPlayerStop(t *testing.T) {
	p := &CommandPlayer{Command: "cat"}
	if err := p.Play(context.Background(), []byte("audio")); err != nil {
		t.Fatal(err)
	}

	p = &CommandPlayer{Command: "sleep 5"}
	done := make(chan error, 1)
	go func() { done <- p.Play(context.Background(), nil) }()
	time.Sleep(50 * time.Millisecond)
	p.Stop()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not interrupt playback")
	}
}

type fakeSynth struct{ err error }

func (f fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte("audio:" + text), f.err
}

type fakePlayer struct {
	played []string
	stops  int
}

func (p *fakePlayer) Play(_ context.Context, audio []byte) error {
	p.played = append(p.played, string(audio))
	return nil
}

func (p *fakePlayer) Stop() { p.stops++ }

func TestSpeaker(t *testing.T) {
	pl := &fakePlayer{}
	s := &Speaker{Synth: fakeSynth{}, Player: pl}
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	if len(pl.played) != 1 || pl.played[0] != "audio:hello" || pl.stops != 1 {
		t.Fatalf("player %+v", pl)
	}
	s.Synth = fakeSynth{err: errors.New("quota")}
	if err := s.Speak(context.Background(), "x"); err == nil {
		t.Fatal("expected synth error")
	}
}

// scriptedRecorder replays a fixed list of clips, then blocks.
type scriptedRecorder struct {
	mu    sync.Mutex
	clips []any // []byte or error
}

func (r *scriptedRecorder) Record(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	if len(r.clips) > 0 {
		c := r.clips[0]
		r.clips = r.clips[1:]
		r.mu.Unlock()
		if err, ok := c.(error); ok {
			return nil, err
		}
		return c.([]byte), nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

type mapTranscriber map[string]string

func (m mapTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	if t, ok := m[string(audio)]; ok && t != "" {
		return t, nil
	}
	return "", ErrEmptyTranscript
}

func TestChunkRecognizer(t *testing.T) {
	rec := &scriptedRecorder{clips: []any{
		errors.New("device busy"),
		[]byte("c1"),
		[]byte("c2"),
		[]byte("quiet"),
	}}
	r := &ChunkRecognizer{
		Recorder:     rec,
		Transcriber:  mapTranscriber{"c1": "make the", "c2": "title bigger"},
		Clip:         time.Second,
		Quiet:        30 * time.Millisecond,
		RestartDelay: time.Millisecond,
	}
	finals := make(chan string, 1)
	var mu sync.Mutex
	var interims []string
	var errs int
	err := r.Start(context.Background(), voice.Handlers{
		Interim: func(s string) { mu.Lock(); interims = append(interims, s); mu.Unlock() },
		Final:   func(s string) { finals <- s },
		Error:   func(error) { mu.Lock(); errs++; mu.Unlock() },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	select {
	case got := <-finals:
		if got != "make the title bigger" {
			t.Fatalf("final %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no final utterance")
	}
	mu.Lock()
	defer mu.Unlock()
	if errs < 1 {
		t.Error("recorder failure was not reported")
	}
	if len(interims) == 0 || interims[len(interims)-1] != "make the title bigger" {
		t.Errorf("interims %q", interims)
	}
}

func TestChunkRecognizerUnsupported(t *testing.T) {
	r := &ChunkRecognizer{}
	if err := r.Start(context.Background(), voice.Handlers{}); !errors.Is(err, voice.ErrRecognitionUnsupported) {
		t.Fatalf("got %v", err)
	}
	r.Stop()
}

type blockingRecorder struct{}

func (blockingRecorder) Record(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return []byte("speech"), nil
}

func TestDictation(t *testing.T) {
	d := &Dictation{Recorder: blockingRecorder{}, Transcriber: mapTranscriber{"speech": "make it pop"}}
	if _, err := d.Finish(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("got %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !d.Recording() {
		t.Fatal("should be recording")
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrRecording) {
		t.Fatalf("got %v", err)
	}
	text, err := d.Finish(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if text != "make it pop" || d.Recording() {
		t.Fatalf("text %q recording %v", text, d.Recording())
	}
}
