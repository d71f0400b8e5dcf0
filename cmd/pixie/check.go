package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/example/pixie/internal/config"
	"github.com/example/pixie/internal/remote"
)

var validateKeyFn = func(ctx context.Context, cfg *config.Config) error {
	return remote.New(cfg.APIBaseURL, cfg.Keys.API).ValidateKey(ctx)
}

type checkCmd struct {
	timeout time.Duration
	out     io.Writer
	*root
	fs *flag.FlagSet
}

func (c *checkCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseCheckCmd(args []string, r *root) (*checkCmd, error) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	c := &checkCmd{root: r.subcommand("check"), fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	fs.DurationVar(&c.timeout, "timeout", 15*time.Second, "how long to wait for the API")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// Run verifies the configured credentials: the transform API key with a
// probe request, and that the speech provider can be built.
func (c *checkCmd) Run() error {
	cfg := c.cfg()
	if cfg.Keys.API == "" {
		return fmt.Errorf("check: no API key; set %s or [keys] api", config.EnvAPIKey)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := validateKeyFn(ctx, cfg); err != nil {
		return fmt.Errorf("check: API key rejected: %w", err)
	}
	fmt.Fprintf(c.out, "API key: ok (%s)\n", cfg.APIBaseURL)

	if _, err := newSpeechFn(cfg); err != nil {
		fmt.Fprintf(c.out, "Voice: unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(c.out, "Voice: ok (%s)\n", cfg.Voice.Provider)
	return nil
}
