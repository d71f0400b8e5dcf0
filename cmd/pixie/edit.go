package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/pixie/internal/appstate"
)

type editCmd struct {
	file string
	url  string
	*root
	fs *flag.FlagSet
}

func (e *editCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	c := &editCmd{root: r.subcommand("edit"), fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.file, "file", "", "image file to open")
	fs.StringVar(&c.url, "url", "", "website to capture and open")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.file == "" && fs.NArg() > 0 {
		c.file = fs.Arg(0)
	}
	if c.file != "" && c.url != "" {
		return nil, usageErrorf(c, "-file and -url cannot be used together")
	}
	return c, nil
}

func (e *editCmd) Run() error {
	sess, release := e.newSession()
	defer release()

	if e.file != "" {
		data, err := os.ReadFile(e.file)
		if err != nil {
			return fmt.Errorf("edit: open %s: %w", e.file, err)
		}
		if err := sess.Upload(filepath.Base(e.file), data); err != nil {
			return fmt.Errorf("edit: load %s: %w", e.file, err)
		}
	}

	opts := []appstate.Option{
		appstate.WithSession(sess),
		appstate.WithTheme(e.activeThemeOrDefault()),
		appstate.WithSaveDir(e.cfg().SaveDir),
		appstate.WithURL(e.url),
		appstate.WithLogger(e.log()),
	}
	if v := e.voiceLoop(sess); v != nil {
		opts = append(opts, appstate.WithVoice(v))
	}
	if d := e.dictation(); d != nil {
		opts = append(opts, appstate.WithDictation(d))
	}
	appstate.New(opts...).Run()
	return nil
}
