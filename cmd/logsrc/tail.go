package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/TimelordUK/logsrc/internal/consolidate"
	"github.com/TimelordUK/logsrc/internal/source"
)

func tailCommand() *cli.Command {
	return &cli.Command{
		Name:      "tail",
		Aliases:   []string{"f"},
		Usage:     "Follow one or more files, merging their new lines onto stdout",
		ArgsUsage: "<file or glob>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "prime",
				Aliases: []string{"n"},
				Usage:   "Print the last N lines of each file first",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "no-prefix",
				Usage: "Do not tag lines with their file name",
			},
		},
		Action: tailAction,
	}
}

func tailAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("tail needs at least one file", 2)
	}
	paths, err := expandPaths(c.Args().Slice())
	if err != nil {
		return err
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	opts, err := cfg.ToSourceOptions()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	prefix := len(paths) > 1 && !c.Bool("no-prefix")
	w := consolidate.NewWriter(os.Stdout,
		consolidate.WithPrefix(prefix),
		consolidate.WithBatching(cfg.NotifyMaxWait(), cfg.Notify.MaxLines))

	var sources []*source.Source
	defer func() {
		w.Close()
		for _, src := range sources {
			src.Close()
		}
	}()

	for _, path := range paths {
		src, err := source.Open(path, opts)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		if err := src.WaitScanned(ctx); err != nil {
			return err
		}
		if err := w.Add(ctx, src, c.Int("prime")); err != nil {
			return err
		}
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
