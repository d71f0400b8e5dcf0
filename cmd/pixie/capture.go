package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/example/pixie/internal/imaging"
	"github.com/example/pixie/internal/render"
)

type captureCmd struct {
	url    string
	output string
	shadow bool
	*root
	fs *flag.FlagSet
}

func (c *captureCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseCaptureCmd(args []string, r *root) (*captureCmd, error) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	c := &captureCmd{root: r.subcommand("capture"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.url, "url", "", "website to capture")
	fs.StringVar(&c.output, "output", "", "PNG file to write, - for stdout")
	fs.BoolVar(&c.shadow, "shadow", false, "add a drop shadow to the screenshot")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.url == "" && fs.NArg() > 0 {
		c.url = fs.Arg(0)
	}
	if c.url == "" || c.output == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *captureCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, closeSvc := newScreenshotsFn(c.cfg())
	defer func() {
		if err := closeSvc(); err != nil {
			c.log().Warn("pixie: closing screenshot browser", "error", err)
		}
	}()

	res, err := svc.Capture(ctx, c.url)
	if err != nil {
		return fmt.Errorf("capture %s: %w", c.url, err)
	}
	_, data, err := imaging.ParseDataURL(res.Screenshot)
	if err != nil {
		return fmt.Errorf("capture %s: screenshot payload: %w", c.url, err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return fmt.Errorf("capture %s: %w", c.url, err)
	}
	var out image.Image = img
	if c.shadow {
		out, _ = render.Shadow(img, render.DefaultShadowOptions())
	}
	if err := writePNG(c.output, out); err != nil {
		return fmt.Errorf("capture %s: %w", c.url, err)
	}
	if res.Metadata != nil {
		c.log().Info("pixie: captured", "url", res.Metadata.URL, "width", res.Metadata.Dimensions.Width, "height", res.Metadata.Dimensions.Height)
	}
	if c.output != "-" {
		c.notifySave(c.output)
	}
	return nil
}
