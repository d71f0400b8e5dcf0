package config

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/example/pixie/internal/theme"
)

type yamlFile struct {
	APIBaseURL string `yaml:"api_base_url"`
	ImageModel string `yaml:"image_model"`
	CodeModel  string `yaml:"code_model"`
	Theme      string `yaml:"theme"`
	SaveDir    string `yaml:"save_dir"`

	Keys struct {
		API        string `yaml:"api"`
		ElevenLabs string `yaml:"elevenlabs"`
		OpenAI     string `yaml:"openai"`
	} `yaml:"keys"`

	Voice struct {
		Provider    string `yaml:"provider"`
		VoiceID     string `yaml:"voice_id"`
		QuietPeriod string `yaml:"quiet_period"`
		Language    string `yaml:"language"`
		Recorder    string `yaml:"recorder"`
		Player      string `yaml:"player"`
	} `yaml:"voice"`

	Screenshot struct {
		Endpoint      string `yaml:"endpoint"`
		RemoteBrowser string `yaml:"remote_browser"`
		Width         int    `yaml:"width"`
		Height        int    `yaml:"height"`
		Timeout       string `yaml:"timeout"`
	} `yaml:"screenshot"`

	Notify map[string]bool `yaml:"notify"`

	Themes map[string]map[string]string `yaml:"themes"`
}

// ParseYAML reads the YAML form of the configuration. Keys mirror the RC
// format; themes live under a top-level "themes" mapping.
func ParseYAML(r io.Reader) (*Config, error) {
	var f yamlFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg := New()
	root := map[string]string{
		"api_base_url": f.APIBaseURL,
		"image_model":  f.ImageModel,
		"code_model":   f.CodeModel,
		"theme":        f.Theme,
		"save_dir":     f.SaveDir,
	}
	for k, v := range root {
		if v != "" {
			_ = setRootField(cfg, k, v)
		}
	}

	sections := map[string]map[string]string{
		"keys": {
			"api":        f.Keys.API,
			"elevenlabs": f.Keys.ElevenLabs,
			"openai":     f.Keys.OpenAI,
		},
		"voice": {
			"provider":     f.Voice.Provider,
			"voice_id":     f.Voice.VoiceID,
			"quiet_period": f.Voice.QuietPeriod,
			"language":     f.Voice.Language,
			"recorder":     f.Voice.Recorder,
			"player":       f.Voice.Player,
		},
		"screenshot": {
			"endpoint":       f.Screenshot.Endpoint,
			"remote_browser": f.Screenshot.RemoteBrowser,
			"width":          itoa(f.Screenshot.Width),
			"height":         itoa(f.Screenshot.Height),
			"timeout":        f.Screenshot.Timeout,
		},
	}
	for section, fields := range sections {
		for k, v := range fields {
			if v == "" {
				continue
			}
			if err := setSectionField(cfg, section, k, v); err != nil {
				return nil, fmt.Errorf("error in section %s: %w", section, err)
			}
		}
	}
	for k, v := range f.Notify {
		if err := setNotifyField(&cfg.Notify, k, strconv.FormatBool(v)); err != nil {
			return nil, err
		}
	}

	for name, fields := range f.Themes {
		t := theme.Default()
		t.Name = name
		for k, v := range fields {
			if err := theme.Set(t, k, v); err != nil {
				return nil, fmt.Errorf("error in theme %s: %w", name, err)
			}
		}
		cfg.Themes[name] = t
	}
	return cfg, nil
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
