package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/example/pixie/internal/config"
	"github.com/example/pixie/internal/notify"
	"github.com/example/pixie/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs              *flag.FlagSet
	program         string
	notifier        *notify.Notifier
	config          *config.Config
	configPath      string
	apiKey          string
	transformAlerts bool
	saveAlerts      bool
	copyAlerts      bool
	errorAlerts     bool
	themeName       string
	verbose         bool
	activeTheme     *theme.Theme
	logger          *slog.Logger
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	if r == nil {
		r = &root{program: "pixie"}
	}
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:     program,
		notifier:    r.notifier,
		config:      r.config,
		configPath:  r.configPath,
		themeName:   r.themeName,
		activeTheme: r.activeTheme,
		logger:      r.logger,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
		cfg.ApplyEnv(os.Getenv)
	}

	r := &root{
		fs:         flag.NewFlagSet("pixie", flag.ExitOnError),
		program:    "pixie",
		notifier:   notify.New(notify.LoadPreferences()),
		config:     cfg,
		configPath: loader.GetConfigPath(),
	}
	r.fs.BoolVar(&r.transformAlerts, "notify-transform", cfg.Notify.Transform, "show a desktop notification after a transformation completes")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after exporting an image")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.errorAlerts, "notify-error", cfg.Notify.Error, "show a desktop notification when an action fails")
	r.fs.StringVar(&r.apiKey, "api-key", "", "transform API key (overrides "+config.EnvAPIKey+" and the config file)")

	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, dark, or a theme file)")
	r.fs.BoolVar(&r.verbose, "v", false, "log debug output to stderr")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}

	level := slog.LevelInfo
	if r.verbose {
		level = slog.LevelDebug
	}
	r.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(r.logger)

	if r.notifier != nil {
		r.notifier.Enable(notify.EventTransform, r.transformAlerts)
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
		r.notifier.Enable(notify.EventError, r.errorAlerts)
	}
	if r.apiKey != "" {
		r.config.Keys.API = r.apiKey
	}
	if r.themeName != "" {
		r.config.Theme = r.themeName
	}
	r.activeTheme = r.config.ResolveTheme(theme.NewLoader())

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "apply":
		cmd, err = parseApplyCmd(subArgs, r)
	case "preview":
		cmd, err = parsePreviewCmd(subArgs, r)
	case "capture":
		cmd, err = parseCaptureCmd(subArgs, r)
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "check":
		cmd, err = parseCheckCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (r *root) log() *slog.Logger {
	if r == nil || r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

func (r *root) notifySave(path string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Save(path)
}

func (r *root) activeThemeOrDefault() *theme.Theme {
	if r == nil || r.activeTheme == nil {
		return theme.Default()
	}
	return r.activeTheme
}
