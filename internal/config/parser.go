package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/example/pixie/internal/theme"
)

// Parse reads configuration in RC format from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	var currentTheme *theme.Theme

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			currentTheme = nil

			if name, ok := strings.CutPrefix(currentSection, "theme."); ok {
				currentTheme = theme.Default()
				currentTheme.Name = name
				cfg.Themes[name] = currentTheme
			}
			continue
		}

		key, value, ok := splitLine(line)
		if !ok {
			continue
		}

		var err error
		switch {
		case currentTheme != nil:
			err = theme.Set(currentTheme, key, value)
		case currentSection == "":
			err = setRootField(cfg, key, value)
		default:
			err = setSectionField(cfg, currentSection, key, value)
		}
		if err != nil {
			if currentSection == "" {
				return nil, fmt.Errorf("error in root section: %w", err)
			}
			return nil, fmt.Errorf("error in section [%s]: %w", currentSection, err)
		}
	}

	return cfg, scanner.Err()
}

// splitLine accepts "key = value" and "key: value". Quoted values are
// unquoted with Go string syntax.
func splitLine(line string) (key, value string, ok bool) {
	i := strings.IndexAny(line, "=:")
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
		if u, err := strconv.Unquote(value); err == nil {
			value = u
		} else {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}

func setRootField(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "api_base_url":
		cfg.APIBaseURL = strings.TrimRight(value, "/")
	case "image_model":
		cfg.ImageModel = value
	case "code_model":
		cfg.CodeModel = value
	case "theme":
		cfg.Theme = value
	case "save_dir":
		cfg.SaveDir = value
	}
	return nil
}

func setSectionField(cfg *Config, section, key, value string) error {
	key = strings.ToLower(key)
	switch section {
	case "keys":
		switch key {
		case "api":
			cfg.Keys.API = value
		case "elevenlabs":
			cfg.Keys.ElevenLabs = value
		case "openai":
			cfg.Keys.OpenAI = value
		}
	case "voice":
		return setVoiceField(&cfg.Voice, key, value)
	case "screenshot":
		return setScreenshotField(&cfg.Screenshot, key, value)
	case "notify":
		return setNotifyField(&cfg.Notify, key, value)
	}
	return nil
}

func setVoiceField(v *Voice, key, value string) error {
	switch key {
	case "provider":
		p := strings.ToLower(value)
		if p != ProviderElevenLabs && p != ProviderOpenAI {
			return fmt.Errorf("unknown voice provider %q", value)
		}
		v.Provider = p
	case "voice_id":
		v.VoiceID = value
	case "quiet_period":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for key %s: %w", key, err)
		}
		v.QuietPeriod = d
	case "language":
		v.Language = value
	case "recorder":
		v.Recorder = value
	case "player":
		v.Player = value
	}
	return nil
}

func setScreenshotField(s *Screenshot, key, value string) error {
	switch key {
	case "endpoint":
		s.Endpoint = value
	case "remote_browser":
		s.RemoteBrowser = value
	case "width", "height":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size for key %s: %q", key, value)
		}
		if key == "width" {
			s.Width = n
		} else {
			s.Height = n
		}
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for key %s: %w", key, err)
		}
		s.Timeout = d
	}
	return nil
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch key {
	case "transform":
		n.Transform = b
	case "save":
		n.Save = b
	case "copy":
		n.Copy = b
	case "error":
		n.Error = b
	}
	return nil
}
