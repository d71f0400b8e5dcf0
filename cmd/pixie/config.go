package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/example/pixie/internal/config"
)

type configCmd struct {
	*root
	fs     *flag.FlagSet
	output string
	out    io.Writer
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	c := &configCmd{root: r.subcommand("config"), fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", "", "file to save to (default: the loaded config file, else "+config.DefaultPath()+")")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		return c.runPrint()
	case "save":
		return c.runSave()
	default:
		return usageErrorf(c, "unknown config command: %s", args[0])
	}
}

func (c *configCmd) runPrint() error {
	_, err := fmt.Fprint(c.out, c.cfg().String())
	return err
}

func (c *configCmd) runSave() error {
	path := c.output
	if path == "" {
		path = c.configPath
	}
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(c.cfg(), path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}
