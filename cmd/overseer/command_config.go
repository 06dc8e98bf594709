package main

import (
	"flag"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"overseer/internal/config"
)

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	defaults := fs.Bool("defaults", false, "print built-in defaults instead of the effective configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if !*defaults {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	path, err := config.ConfigPath()
	if err == nil {
		fmt.Fprintf(os.Stderr, "# %s\n", path)
	}
	encoder := toml.NewEncoder(os.Stdout)
	return encoder.Encode(cfg)
}
