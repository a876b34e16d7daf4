package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/TimelordUK/logsrc/internal/slice"
	"github.com/TimelordUK/logsrc/internal/source"
)

const readChunk = 1000

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print lines of a file by number",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "from",
				Usage: "First line to print (1-based)",
				Value: 1,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of lines to print (0 for all)",
			},
			&cli.IntSliceFlag{
				Name:    "lines",
				Aliases: []string{"l"},
				Usage:   "Print only these lines (1-based, e.g. --lines 3,10,42)",
			},
			&cli.BoolFlag{
				Name:  "number",
				Usage: "Prefix each line with its number",
			},
		},
		Action: catAction,
	}
}

func catAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("cat needs exactly one file", 2)
	}
	src, _, err := openSource(c, c.Args().First())
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signalContext(c)
	defer stop()
	if err := src.WaitScanned(ctx); err != nil {
		return err
	}
	if reason := src.Properties().EmptyReason; reason != source.EmptyReasonNone {
		return fmt.Errorf("%s: %s", src.Path(), reason)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	number := c.Bool("number")
	emit := func(index int, line string) {
		if number {
			fmt.Fprintf(out, "%6d\t", index+1)
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}

	if wanted := c.IntSlice("lines"); len(wanted) > 0 {
		indices := make([]int, len(wanted))
		for i, n := range wanted {
			indices[i] = n - 1
		}
		sel := source.Indices(indices...)
		for _, e := range src.Entries(ctx, sel, source.ColumnIndex, source.ColumnRawContent) {
			if e.Valid() {
				emit(e.Index, e.RawContent)
			}
		}
		return ctx.Err()
	}

	start := max(c.Int("from")-1, 0)
	end := src.LineCount()
	if n := c.Int("count"); n > 0 {
		end = min(end, start+n)
	}
	buf := make([]string, readChunk)
	for pos := start; pos < end; pos += readChunk {
		dst := buf[:min(readChunk, end-pos)]
		n := src.ReadLines(ctx, source.Range(pos, len(dst)), dst)
		for i, line := range dst[:n] {
			emit(pos+i, line)
		}
		if n < len(dst) {
			return ctx.Err()
		}
	}
	return nil
}

func sliceCommand() *cli.Command {
	return &cli.Command{
		Name:      "slice",
		Usage:     "Copy a range of lines into a new file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "from",
				Usage: "First line (1-based)",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "to",
				Usage: "Last line, inclusive (0 for the end)",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "File to write",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("slice needs exactly one file", 2)
			}
			src, _, err := openSource(c, c.Args().First())
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signalContext(c)
			defer stop()
			if err := src.WaitScanned(ctx); err != nil {
				return err
			}

			end := src.LineCount()
			if to := c.Int("to"); to > 0 {
				end = to
			}
			info, err := slice.NewSlicer().SliceToFile(ctx, src, c.Int("from")-1, end, c.String("output"))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d lines (%d-%d) to %s\n", info.Lines, info.StartLine+1, info.EndLine, info.OutputPath)
			return nil
		},
	}
}
