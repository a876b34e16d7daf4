package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v2"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/internal/debug"
	"github.com/TimelordUK/logsrc/internal/source"
)

var Version = "0.3.0"

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("encoding") {
		cfg.Source.Encoding = c.String("encoding")
	}
	if c.Bool("mmap") {
		cfg.Source.ReadMode = "mmap"
	}
	if cfg.Debug {
		debug.Enable(true)
	}
	if c.Bool("no-watch") {
		cfg.Source.Watch = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSource loads config and opens path with the resulting options.
func openSource(c *cli.Context, path string) (*source.Source, *config.Config, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.ToSourceOptions()
	if err != nil {
		return nil, nil, err
	}
	src, err := source.Open(path, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return src, cfg, nil
}

// expandPaths resolves glob patterns. A pattern that matches nothing is kept
// as a literal path so missing files are still reported.
func expandPaths(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("bad pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

// signalContext is cancelled on interrupt or termination.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func main() {
	app := &cli.App{
		Name:                   "logsrc",
		Usage:                  "Follow, index and read growing log files",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: $XDG_CONFIG_HOME/logsrc/config.toml)",
			},
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Usage:   "Text encoding of the files (utf-8, utf-16le, latin1, ...)",
			},
			&cli.BoolFlag{
				Name:  "mmap",
				Usage: "Read through a memory mapping instead of file reads",
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Poll only, without filesystem notifications",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write diagnostic output",
			},
			&cli.StringFlag{
				Name:  "debug-file",
				Usage: "Send diagnostic output to a file instead of stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.Enable(true)
			}
			if path := c.String("debug-file"); path != "" {
				debug.Enable(true)
				return debug.OpenFile(path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.Close()
		},
		Commands: []*cli.Command{
			viewCommand(),
			statCommand(),
			catCommand(),
			tailCommand(),
			sliceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.SetFlags(0)
		log.Fatalf("logsrc: %v", err)
	}
}
