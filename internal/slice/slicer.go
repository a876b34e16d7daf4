package slice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TimelordUK/logsrc/internal/source"
)

// Reader is what a slice is taken from. *source.Source satisfies it.
type Reader interface {
	Path() string
	LineCount() int
	ReadLines(ctx context.Context, sel source.Selection, dst []string) int
}

// Info contains metadata about a slice
type Info struct {
	SourcePath string // Original file path
	OutputPath string
	StartLine  int // 0-based, inclusive
	EndLine    int // 0-based, exclusive
	Lines      int // lines actually written
	Parent     *Info
}

// Slicer extracts line ranges from a source into files
type Slicer struct {
	cacheDir string
	chunk    int
}

// NewSlicer creates a slicer writing temporary slices to the OS temp dir
func NewSlicer() *Slicer {
	return &Slicer{
		cacheDir: os.TempDir(),
		chunk:    1000,
	}
}

// SliceToEnd extracts from startLine to the current end of the source
func (s *Slicer) SliceToEnd(ctx context.Context, src Reader, startLine int) (*Info, error) {
	return s.SliceRange(ctx, src, startLine, src.LineCount())
}

// SliceRange extracts lines [startLine, endLine) into a temporary file
func (s *Slicer) SliceRange(ctx context.Context, src Reader, startLine, endLine int) (*Info, error) {
	name := fmt.Sprintf("logsrc-slice-%d-%d-%s", startLine, endLine, filepath.Base(src.Path()))
	return s.SliceToFile(ctx, src, startLine, endLine, filepath.Join(s.cacheDir, name))
}

// SliceToFile extracts lines [startLine, endLine) into path. The range is
// clipped to the lines that exist.
func (s *Slicer) SliceToFile(ctx context.Context, src Reader, startLine, endLine int, path string) (*Info, error) {
	startLine = max(startLine, 0)
	endLine = min(endLine, src.LineCount())
	if startLine >= endLine {
		return nil, fmt.Errorf("invalid range: %d-%d", startLine, endLine)
	}

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create slice file: %w", err)
	}

	n, err := s.WriteRange(ctx, src, startLine, endLine, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Info{
		SourcePath: src.Path(),
		OutputPath: path,
		StartLine:  startLine,
		EndLine:    endLine,
		Lines:      n,
	}, nil
}

// WriteRange writes lines [startLine, endLine) to w, one per line, and
// returns how many were written. It stops early if the source no longer
// has the lines, e.g. after a truncation.
func (s *Slicer) WriteRange(ctx context.Context, src Reader, startLine, endLine int, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	buf := make([]string, s.chunk)
	written := 0

	for pos := startLine; pos < endLine; pos += s.chunk {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		dst := buf[:min(s.chunk, endLine-pos)]
		n := src.ReadLines(ctx, source.Range(pos, len(dst)), dst)
		for _, line := range dst[:n] {
			if _, err := bw.WriteString(line); err != nil {
				return written, fmt.Errorf("failed to write line %d: %w", startLine+written, err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return written, err
			}
			written++
		}
		if n < len(dst) {
			break
		}
	}
	return written, bw.Flush()
}

// Cleanup removes a slice's file
func (s *Slicer) Cleanup(info *Info) error {
	if info == nil || info.OutputPath == "" {
		return nil
	}
	return os.Remove(info.OutputPath)
}
