package source

import "context"

// Line is a single line handed to display code.
type Line struct {
	Content       []byte
	OriginalIndex int // line number in the source, 0-based
	Offset        int64
}

// LineProvider is the core abstraction for accessing lines.
// The viewport only interacts with this interface.
type LineProvider interface {
	// LineCount returns total number of lines
	LineCount() int

	// GetLine returns line at index (0-based)
	GetLine(index int) (*Line, error)

	// GetLines returns a range of lines efficiently
	GetLines(start, count int) ([]*Line, error)
}

var _ LineProvider = (*Source)(nil)

// GetLine implements LineProvider. A line outside the index yields nil.
func (s *Source) GetLine(index int) (*Line, error) {
	lines, err := s.GetLines(index, 1)
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	return lines[0], nil
}

// GetLines implements LineProvider with one contiguous read. Lines that
// could not be served are left out.
func (s *Source) GetLines(start, count int) ([]*Line, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	if count <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.ReadTimeout)
	defer cancel()

	entries := s.Entries(ctx, Range(start, count))
	lines := make([]*Line, 0, len(entries))
	for _, e := range entries {
		if !e.Valid() {
			continue
		}
		lines = append(lines, &Line{
			Content:       []byte(e.RawContent),
			OriginalIndex: e.Index,
			Offset:        e.Offset,
		})
	}
	return lines, nil
}
