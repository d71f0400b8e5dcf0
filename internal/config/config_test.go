package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	input := `
theme = my_custom_theme
save_dir = /tmp/pixie
api_base_url = http://localhost:9000/
image_model = test-image

[keys]
api = secret
elevenlabs = el-key

[voice]
provider = openai
quiet_period = 1500ms
recorder = "rec -q -t wav -"

[screenshot]
endpoint = http://capture:8080/api/screenshot
width = 1024

[notify]
transform = true
save = false
copy = true

[theme.my_custom_theme]
Background = #111111
SelectionBorder = #FF000080
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Theme != "my_custom_theme" {
		t.Errorf("Expected theme 'my_custom_theme', got '%s'", cfg.Theme)
	}
	if cfg.SaveDir != "/tmp/pixie" {
		t.Errorf("Expected save_dir '/tmp/pixie', got '%s'", cfg.SaveDir)
	}
	if cfg.APIBaseURL != "http://localhost:9000" {
		t.Errorf("base url %q", cfg.APIBaseURL)
	}
	if cfg.ImageModel != "test-image" || cfg.CodeModel == "" {
		t.Errorf("models %q %q", cfg.ImageModel, cfg.CodeModel)
	}
	if cfg.Keys.API != "secret" || cfg.Keys.ElevenLabs != "el-key" {
		t.Errorf("keys %+v", cfg.Keys)
	}
	if cfg.Voice.Provider != ProviderOpenAI || cfg.Voice.QuietPeriod != 1500*time.Millisecond {
		t.Errorf("voice %+v", cfg.Voice)
	}
	if cfg.Voice.Recorder != "rec -q -t wav -" {
		t.Errorf("recorder %q", cfg.Voice.Recorder)
	}
	if cfg.Screenshot.Width != 1024 || cfg.Screenshot.Height != 800 {
		t.Errorf("screenshot %+v", cfg.Screenshot)
	}
	if cfg.Screenshot.Endpoint != "http://capture:8080/api/screenshot" {
		t.Errorf("endpoint %q", cfg.Screenshot.Endpoint)
	}
	if !cfg.Notify.Transform || cfg.Notify.Save || !cfg.Notify.Copy || !cfg.Notify.Error {
		t.Errorf("notify %+v", cfg.Notify)
	}

	th, ok := cfg.Themes["my_custom_theme"]
	if !ok {
		t.Fatal("Expected theme 'my_custom_theme' to be loaded")
	}
	if th.Background.R != 0x11 || th.Background.G != 0x11 || th.Background.B != 0x11 {
		t.Errorf("Unexpected Background color: %+v", th.Background)
	}
	if th.SelectionBorder.A != 0x80 {
		t.Errorf("Unexpected SelectionBorder: %+v", th.SelectionBorder)
	}
}

func TestParseErrors(t *testing.T) {
	for name, input := range map[string]string{
		"provider": "[voice]\nprovider = espeak\n",
		"duration": "[voice]\nquiet_period = soon\n",
		"bool":     "[notify]\nsave = maybe\n",
		"width":    "[screenshot]\nwidth = -1\n",
		"colour":   "[theme.x]\nBackground = red\n",
	} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCircular(t *testing.T) {
	input := `theme = dark
save_dir = /home/user/edits

[voice]
provider = elevenlabs
voice_id = abc
quiet_period = 3s
player = "mpv --really-quiet -"

[screenshot]
remote_browser = ws://127.0.0.1:9222
timeout = 45s

[notify]
transform = true
save = true
copy = false

[theme.custom]
Name = custom
Background = #000000
Foreground = #FFFFFF
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Initial parse failed: %v", err)
	}

	generated := cfg.String()

	cfg2, err := Parse(strings.NewReader(generated))
	if err != nil {
		t.Fatalf("Circular parse failed: %v\n%s", err, generated)
	}

	if cfg.Theme != cfg2.Theme {
		t.Errorf("Theme mismatch: %q vs %q", cfg.Theme, cfg2.Theme)
	}
	if cfg.SaveDir != cfg2.SaveDir {
		t.Errorf("SaveDir mismatch: %q vs %q", cfg.SaveDir, cfg2.SaveDir)
	}
	if cfg.Voice != cfg2.Voice {
		t.Errorf("Voice mismatch: %+v vs %+v", cfg.Voice, cfg2.Voice)
	}
	if cfg.Screenshot != cfg2.Screenshot {
		t.Errorf("Screenshot mismatch: %+v vs %+v", cfg.Screenshot, cfg2.Screenshot)
	}
	if cfg.Notify != cfg2.Notify {
		t.Errorf("Notify mismatch: %+v vs %+v", cfg.Notify, cfg2.Notify)
	}

	t1 := cfg.Themes["custom"]
	t2 := cfg2.Themes["custom"]
	if t1 == nil || t2 == nil {
		t.Fatalf("Custom theme missing in one config")
	}
	if *t1 != *t2 {
		t.Errorf("Theme mismatch: %+v vs %+v", t1, t2)
	}
}

func TestStringOmitsKeys(t *testing.T) {
	cfg := New()
	cfg.Keys.API = "very-secret"
	if strings.Contains(cfg.String(), "very-secret") {
		t.Fatal("credentials must not be rendered")
	}
}

func TestParseYAML(t *testing.T) {
	input := `
theme: dark
keys:
  api: from-yaml
voice:
  provider: openai
  quiet_period: 2500ms
screenshot:
  height: 600
notify:
  save: true
  error: false
themes:
  mine:
    Background: "#101010"
`
	cfg, err := ParseYAML(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "dark" || cfg.Keys.API != "from-yaml" {
		t.Errorf("root %+v", cfg)
	}
	if cfg.Voice.Provider != ProviderOpenAI || cfg.Voice.QuietPeriod != 2500*time.Millisecond {
		t.Errorf("voice %+v", cfg.Voice)
	}
	if cfg.Screenshot.Height != 600 || cfg.Screenshot.Width != 1280 {
		t.Errorf("screenshot %+v", cfg.Screenshot)
	}
	if !cfg.Notify.Save || cfg.Notify.Error {
		t.Errorf("notify %+v", cfg.Notify)
	}
	if th := cfg.Themes["mine"]; th == nil || th.Background.R != 0x10 {
		t.Errorf("theme %+v", th)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	cfg.Keys.API = "file"
	env := map[string]string{
		EnvAPIKey:     "env",
		EnvOpenAIKey:  " sk-1 ",
		EnvAPIBaseURL: "",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Keys.API != "env" || cfg.Keys.OpenAI != "sk-1" {
		t.Errorf("keys %+v", cfg.Keys)
	}
	if cfg.APIBaseURL == "" {
		t.Error("empty env must not clear the base url")
	}
}

func TestLoaderOverrideAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pixie.rc")
	cfg := New()
	cfg.Theme = "dark"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	l := NewLoader("v1", path)
	l.Getenv = func(k string) string {
		if k == EnvTheme {
			return "light"
		}
		return ""
	}
	got, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Theme != "light" {
		t.Errorf("env should win over file, got %q", got.Theme)
	}

	yamlPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(yamlPath, []byte("save_dir: /x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	l = &Loader{OverridePath: yamlPath}
	got, err = l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.SaveDir != "/x" {
		t.Errorf("yaml save_dir %q", got.SaveDir)
	}
}
