package main

import (
	"context"
	"flag"
	"os"

	"overseer/internal/ui"
)

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.EnsureDaemon(context.Background()); err != nil {
		return err
	}
	return ui.Run(c)
}
