package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultElevenLabsURL is the public ElevenLabs API.
const DefaultElevenLabsURL = "https://api.elevenlabs.io"

const (
	elevenTTSModel = "eleven_monolingual_v1"
	elevenSTTModel = "scribe_v1"
	elevenVoiceID  = "pNInz6obpgDQGcFmaJgB"
)

// ElevenLabs talks to the ElevenLabs speech API.
type ElevenLabs struct {
	APIKey     string
	VoiceID    string
	Language   string // ISO 639 code sent with transcriptions
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (e *ElevenLabs) baseURL() string {
	if e.BaseURL != "" {
		return strings.TrimRight(e.BaseURL, "/")
	}
	return DefaultElevenLabsURL
}

func (e *ElevenLabs) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: time.Minute}
}

func (e *ElevenLabs) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Synthesize returns MP3 audio of text spoken by the configured voice.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	voice := e.VoiceID
	if voice == "" {
		voice = elevenVoiceID
	}
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": elevenTTSModel,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.5,
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL()+"/v1/text-to-speech/"+voice, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.APIKey)

	resp, err := e.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("text-to-speech failed: %s", strings.TrimSpace(string(data)))
	}
	return data, nil
}

// Transcribe sends a recording to the speech-to-text endpoint.
func (e *ElevenLabs) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	_ = w.WriteField("model_id", elevenSTTModel)
	lang := e.Language
	if lang == "" {
		lang = "eng"
	}
	_ = w.WriteField("language_code", lang)
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL()+"/v1/speech-to-text", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", e.APIKey)

	resp, err := e.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("speech-to-text: %w", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "failed to convert speech to text"
		var detail struct {
			Detail json.RawMessage `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && len(detail.Detail) > 0 {
			msg += ": " + string(detail.Detail)
		}
		e.logger().Warn("speech: elevenlabs transcription failed", "status", resp.StatusCode)
		return "", fmt.Errorf("%s", msg)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Text == "" {
		return "", ErrEmptyTranscript
	}
	return out.Text, nil
}
