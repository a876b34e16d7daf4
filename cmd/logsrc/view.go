package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/TimelordUK/logsrc/internal/ui"
)

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:      "view",
		Aliases:   []string{"v"},
		Usage:     "Page through a file and follow it as it grows",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-follow",
				Usage: "Start at the top instead of following the end",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("view needs exactly one file", 2)
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if c.Bool("no-follow") {
				cfg.Display.Follow = false
			}

			model, err := ui.NewModel(c.Args().First(), cfg)
			if err != nil {
				return err
			}
			defer model.Close()

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(c.Context))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("ui: %w", err)
			}
			return nil
		},
	}
}
