package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/example/pixie/internal/appstate"
	"github.com/example/pixie/internal/canvas"
)

type previewCmd struct {
	file   string
	url    string
	ratio  string
	box    string
	output string
	window bool
	width  int
	height int
	*root
	fs *flag.FlagSet
}

func (p *previewCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func parsePreviewCmd(args []string, r *root) (*previewCmd, error) {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	c := &previewCmd{root: r.subcommand("preview"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.file, "file", "", "image file to open")
	fs.StringVar(&c.url, "url", "", "website to capture")
	fs.StringVar(&c.ratio, "ratio", "", "aspect ratio id for the selection: "+ratioIDs())
	fs.StringVar(&c.box, "box", "", "selection in image pixels as x,y,w,h")
	fs.StringVar(&c.output, "output", "", "file to write the preview to, - for stdout")
	fs.BoolVar(&c.window, "window", false, "render the whole editor window instead of the image")
	fs.IntVar(&c.width, "width", 1280, "window width for -window")
	fs.IntVar(&c.height, "height", 800, "window height for -window")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case c.file == "" && c.url == "":
		return nil, usageErrorf(c, "%v", errNoSource)
	case c.output == "":
		return nil, usageErrorf(c, "-output is required")
	case c.box != "" && c.ratio == "":
		return nil, usageErrorf(c, "-box needs -ratio")
	}
	return c, nil
}

// Run draws the selection overlay the editor would show, without opening
// a window.
func (p *previewCmd) Run() error {
	sess, release := p.newSession()
	defer release()

	if err := loadSource(context.Background(), sess, p.file, p.url); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	img, err := currentImage(sess)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	var box canvas.Box
	if p.ratio != "" {
		r, b, err := selection(p.ratio, p.box, img)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		box = b
		sess.WithCanvas(func(c *canvas.Controller) { c.SetSelection(r, b) })
	}

	if p.window {
		a := appstate.New(
			appstate.WithSession(sess),
			appstate.WithTheme(p.activeThemeOrDefault()),
			appstate.WithLogger(p.log()),
		)
		return writePNG(p.output, appstate.RenderWindow(a, p.width, p.height))
	}
	return writePNG(p.output, appstate.DrawSelection(img, box, p.activeThemeOrDefault()))
}
