package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/example/pixie/internal/canvas"
	"github.com/example/pixie/internal/render"
)

// compareGap separates the two halves of a -compare image.
const compareGap = 16

type applyCmd struct {
	file      string
	url       string
	box       string
	ratio     string
	prompt    string
	reference string
	output    string
	shadow    bool
	compare   bool
	*root
	fs *flag.FlagSet
}

func (a *applyCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func parseApplyCmd(args []string, r *root) (*applyCmd, error) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	c := &applyCmd{root: r.subcommand("apply"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.file, "file", "", "image file to transform")
	fs.StringVar(&c.url, "url", "", "website to capture and transform")
	fs.StringVar(&c.box, "box", "", "selection in image pixels as x,y,w,h (default: centred box for the ratio)")
	fs.StringVar(&c.ratio, "ratio", "", "aspect ratio id: "+ratioIDs())
	fs.StringVar(&c.prompt, "prompt", "", "what to change inside the selection")
	fs.StringVar(&c.reference, "reference", "", "optional reference image file")
	fs.StringVar(&c.output, "output", "", "file to write the result to, - for stdout")
	fs.BoolVar(&c.shadow, "shadow", false, "add a drop shadow to the result")
	fs.BoolVar(&c.compare, "compare", false, "write the original and the result side by side")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case c.file == "" && c.url == "":
		return nil, usageErrorf(c, "%v", errNoSource)
	case c.ratio == "":
		return nil, usageErrorf(c, "-ratio is required")
	case c.prompt == "":
		return nil, usageErrorf(c, "-prompt is required")
	case c.output == "":
		return nil, usageErrorf(c, "-output is required")
	}
	return c, nil
}

func (a *applyCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, release := a.newSession()
	defer release()

	if err := loadSource(ctx, sess, a.file, a.url); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	before, err := currentImage(sess)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	ratio, box, err := selection(a.ratio, a.box, before)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	sess.WithCanvas(func(c *canvas.Controller) { c.SetSelection(ratio, box) })
	sess.SetPrompt(a.prompt)
	if a.reference != "" {
		data, err := os.ReadFile(a.reference)
		if err != nil {
			return fmt.Errorf("apply: open reference: %w", err)
		}
		if err := sess.SetReference(data); err != nil {
			return fmt.Errorf("apply: reference %s: %w", a.reference, err)
		}
	}

	a.log().Info("pixie: applying", "box", box.String(), "ratio", ratio.ID)
	if err := sess.Submit(ctx); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	after, err := currentImage(sess)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	var out image.Image = after
	if a.compare {
		out = render.Compare(before, after, compareGap, a.activeThemeOrDefault().Background)
	}
	if a.shadow {
		out, _ = render.Shadow(out, render.DefaultShadowOptions())
	}
	if err := writePNG(a.output, out); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	if a.output != "-" {
		a.notifySave(a.output)
		fmt.Fprintf(os.Stderr, "Saved %s\n", a.output)
	}
	return nil
}
