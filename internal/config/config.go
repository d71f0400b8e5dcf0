package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/pixie/internal/remote"
	"github.com/example/pixie/internal/theme"
)

// Keys holds provider credentials. Nothing outside this struct reads them.
type Keys struct {
	API        string
	ElevenLabs string
	OpenAI     string
}

// Voice configures live voice mode and dictation.
type Voice struct {
	Provider    string // elevenlabs or openai
	VoiceID     string
	QuietPeriod time.Duration
	Language    string
	Recorder    string // command line that writes WAV to stdout
	Player      string // command line that plays audio from stdin
}

// Screenshot configures website capture.
type Screenshot struct {
	Endpoint      string // remote capture service; empty captures in-process
	RemoteBrowser string // DevTools URL of an already running browser
	Width         int
	Height        int
	Timeout       time.Duration
}

// Notify holds notification settings.
type Notify struct {
	Transform bool
	Save      bool
	Copy      bool
	Error     bool
}

// Config holds the application configuration.
type Config struct {
	APIBaseURL string
	ImageModel string
	CodeModel  string
	Theme      string
	SaveDir    string

	Keys       Keys
	Voice      Voice
	Screenshot Screenshot
	Notify     Notify
	Themes     map[string]*theme.Theme
}

// Provider names accepted in [voice].
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderOpenAI     = "openai"
)

// DefaultVoiceID is the ElevenLabs voice used for spoken replies.
const DefaultVoiceID = "pNInz6obpgDQGcFmaJgB"

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		APIBaseURL: remote.DefaultBaseURL,
		ImageModel: remote.DefaultImageModel,
		CodeModel:  remote.DefaultCodeModel,
		Voice: Voice{
			Provider:    ProviderElevenLabs,
			VoiceID:     DefaultVoiceID,
			QuietPeriod: 2 * time.Second,
			Language:    "en",
			Recorder:    "arecord -q -f S16_LE -r 16000 -c 1 -t wav",
			Player:      "ffplay -autoexit -nodisp -loglevel quiet -",
		},
		Screenshot: Screenshot{
			Width:   1280,
			Height:  800,
			Timeout: 30 * time.Second,
		},
		Notify: Notify{Error: true},
		Themes: make(map[string]*theme.Theme),
	}
}

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey        = "PIXIE_API_KEY"
	EnvAPIBaseURL    = "PIXIE_API_BASE_URL"
	EnvElevenLabsKey = "PIXIE_ELEVENLABS_KEY"
	EnvOpenAIKey     = "PIXIE_OPENAI_KEY"
	EnvTheme         = "PIXIE_THEME"
)

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&c.Keys.API, EnvAPIKey)
	set(&c.APIBaseURL, EnvAPIBaseURL)
	set(&c.Keys.ElevenLabs, EnvElevenLabsKey)
	set(&c.Keys.OpenAI, EnvOpenAIKey)
	set(&c.Theme, EnvTheme)
}

// ResolveTheme returns the active theme: a [theme.x] section from the file
// first, then anything the theme loader can find, then the default.
func (c *Config) ResolveTheme(l *theme.Loader) *theme.Theme {
	if t, ok := c.Themes[c.Theme]; ok {
		return t
	}
	if l != nil {
		if t, err := l.Load(c.Theme); err == nil {
			return t
		}
	}
	return theme.Default()
}

// String implements fmt.Stringer and returns the configuration in RC format.
// Credentials are not written.
func (c *Config) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "api_base_url = %s\n", c.APIBaseURL)
	fmt.Fprintf(&sb, "image_model = %s\n", c.ImageModel)
	fmt.Fprintf(&sb, "code_model = %s\n", c.CodeModel)
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	sb.WriteString("\n")

	sb.WriteString("[voice]\n")
	fmt.Fprintf(&sb, "provider = %s\n", c.Voice.Provider)
	fmt.Fprintf(&sb, "voice_id = %s\n", c.Voice.VoiceID)
	fmt.Fprintf(&sb, "quiet_period = %s\n", c.Voice.QuietPeriod)
	fmt.Fprintf(&sb, "language = %s\n", c.Voice.Language)
	fmt.Fprintf(&sb, "recorder = %q\n", c.Voice.Recorder)
	fmt.Fprintf(&sb, "player = %q\n", c.Voice.Player)
	sb.WriteString("\n")

	sb.WriteString("[screenshot]\n")
	if c.Screenshot.Endpoint != "" {
		fmt.Fprintf(&sb, "endpoint = %s\n", c.Screenshot.Endpoint)
	}
	if c.Screenshot.RemoteBrowser != "" {
		fmt.Fprintf(&sb, "remote_browser = %s\n", c.Screenshot.RemoteBrowser)
	}
	fmt.Fprintf(&sb, "width = %d\n", c.Screenshot.Width)
	fmt.Fprintf(&sb, "height = %d\n", c.Screenshot.Height)
	fmt.Fprintf(&sb, "timeout = %s\n", c.Screenshot.Timeout)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "transform = %v\n", c.Notify.Transform)
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "error = %v\n", c.Notify.Error)
	sb.WriteString("\n")

	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range theme.Fields(t) {
			fmt.Fprintf(&sb, "%s: %s\n", f[0], f[1])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
