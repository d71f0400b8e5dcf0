package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/pixie/internal/server"
)

type serveCmd struct {
	addr string
	*root
	fs *flag.FlagSet
}

func (s *serveCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	c := &serveCmd{root: r.subcommand("serve"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.addr, "addr", ":8080", "address to listen on")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// Run serves the screenshot endpoint until interrupted.
func (s *serveCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *s.cfg()
	// Serving the endpoint we would otherwise call would loop.
	cfg.Screenshot.Endpoint = ""
	svc, closeSvc := newScreenshotsFn(&cfg)
	defer func() {
		if err := closeSvc(); err != nil {
			s.log().Warn("pixie: closing screenshot browser", "error", err)
		}
	}()
	return server.New(svc, s.log()).ListenAndServe(ctx, s.addr)
}
