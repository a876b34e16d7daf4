package index

import (
	"bytes"
	"errors"
	"io"

	"github.com/TimelordUK/logsrc/internal/textenc"
)

// DefaultChunkSize is the read size used to amortize I/O while scanning.
const DefaultChunkSize = 4096

// OffsetScanner finds line starts in a byte stream. It is resumable: the
// caller positions the stream at any line start and tells the scanner the
// absolute offset it begins at.
//
// Usage:
//
//	s := NewOffsetScanner(f, start, textenc.UTF8, 0)
//	for {
//	    next, err := s.Next()
//	    if err == io.EOF { break }
//	    // a line starts at next
//	}
type OffsetScanner struct {
	r    io.Reader
	buf  []byte
	n    int   // valid bytes in buf
	i    int   // next byte in buf to inspect
	base int64 // absolute offset of buf[0]

	term    []byte
	unit    int64
	matched int // length of the terminator prefix matched so far
	err     error
}

// NewOffsetScanner returns a scanner reading r, whose first byte sits at
// absolute offset start. chunkSize <= 0 selects DefaultChunkSize.
func NewOffsetScanner(r io.Reader, start int64, enc *textenc.Encoding, chunkSize int) *OffsetScanner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &OffsetScanner{
		r:    r,
		buf:  make([]byte, chunkSize),
		base: start,
		term: enc.Terminator(),
		unit: int64(enc.Unit()),
	}
}

// Next returns the absolute offset of the byte following the next
// terminator, which is where the next line starts. It returns io.EOF when
// the stream holds no further terminator; a terminator split across two
// reads is still found.
func (s *OffsetScanner) Next() (int64, error) {
	for {
		for s.i < s.n {
			b := s.buf[s.i]
			pos := s.base + int64(s.i)
			s.i++

			if b == s.term[s.matched] && (s.matched > 0 || pos%s.unit == 0) {
				s.matched++
				if s.matched == len(s.term) {
					s.matched = 0
					return pos + 1, nil
				}
				continue
			}
			s.matched = 0
			if pos%s.unit == 0 && b == s.term[0] {
				s.matched = 1
			}
		}
		if err := s.fill(); err != nil {
			return -1, err
		}
	}
}

// Position is the absolute offset of the first byte not yet consumed from
// the stream.
func (s *OffsetScanner) Position() int64 {
	return s.base + int64(s.i)
}

// Consumed is the absolute offset one past the last byte read from the
// stream, i.e. how far into the file the scanner has seen.
func (s *OffsetScanner) Consumed() int64 {
	return s.base + int64(s.n)
}

func (s *OffsetScanner) fill() error {
	if s.err != nil {
		return s.err
	}
	s.base += int64(s.n)
	s.n, s.i = 0, 0
	for s.n == 0 {
		n, err := s.r.Read(s.buf)
		s.n = n
		if err != nil {
			if n > 0 {
				// Deliver what was read, report the error on the next fill.
				s.err = err
				return nil
			}
			s.err = err
			return err
		}
	}
	return nil
}

// DetectPreamble reports the length of enc's preamble if, and only if, the
// file actually starts with it. Writers configured to emit a BOM sometimes
// don't, so the bytes are always compared.
func DetectPreamble(r io.ReaderAt, enc *textenc.Encoding) (int64, error) {
	pre := enc.Preamble()
	if len(pre) == 0 {
		return 0, nil
	}
	head := make([]byte, len(pre))
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if n == len(pre) && bytes.Equal(head, pre) {
		return int64(len(pre)), nil
	}
	return 0, nil
}
