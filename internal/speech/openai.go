package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI uses Whisper for transcription and the tts-1 model for speech.
type OpenAI struct {
	client   openai.Client
	Language string
	Voice    openai.AudioSpeechNewParamsVoice
}

// NewOpenAI returns a backend for apiKey. Extra options are passed to the
// client, e.g. option.WithBaseURL in tests.
func NewOpenAI(apiKey, language string, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client:   openai.NewClient(opts...),
		Language: language,
		Voice:    openai.AudioSpeechNewParamsVoiceAlloy,
	}
}

// Transcribe runs whisper-1 on the recording.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, "audio/wav"),
		Model: openai.AudioModelWhisper1,
	}
	if o.Language != "" {
		params.Language = openai.String(o.Language)
	}
	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("speech-to-text: %w", err)
	}
	if res.Text == "" {
		return "", ErrEmptyTranscript
	}
	return res.Text, nil
}

// Synthesize returns MP3 audio of text.
func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          o.Voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
