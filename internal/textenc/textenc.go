// Package textenc describes the text encodings a log source can be read
// with: which bytes terminate a line, which preamble (BOM) a writer may put
// at the start of the file, and how raw line bytes decode into text.
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding is returned by Lookup for names it does not know.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// Encoding couples a decoder with the byte-level facts the line scanner
// needs.
type Encoding struct {
	name       string
	terminator []byte
	cr         []byte
	preamble   []byte
	unit       int
	enc        encoding.Encoding
}

var (
	UTF8 = &Encoding{
		name:       "utf-8",
		terminator: []byte{'\n'},
		cr:         []byte{'\r'},
		preamble:   []byte{0xEF, 0xBB, 0xBF},
		unit:       1,
		enc:        unicode.UTF8,
	}
	UTF16LE = &Encoding{
		name:       "utf-16le",
		terminator: []byte{'\n', 0x00},
		cr:         []byte{'\r', 0x00},
		preamble:   []byte{0xFF, 0xFE},
		unit:       2,
		enc:        unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	}
	UTF16BE = &Encoding{
		name:       "utf-16be",
		terminator: []byte{0x00, '\n'},
		cr:         []byte{0x00, '\r'},
		preamble:   []byte{0xFE, 0xFF},
		unit:       2,
		enc:        unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	}
	Latin1 = &Encoding{
		name:       "iso-8859-1",
		terminator: []byte{'\n'},
		cr:         []byte{'\r'},
		unit:       1,
		enc:        charmap.ISO8859_1,
	}
	Windows1252 = &Encoding{
		name:       "windows-1252",
		terminator: []byte{'\n'},
		cr:         []byte{'\r'},
		unit:       1,
		enc:        charmap.Windows1252,
	}
)

var byName = map[string]*Encoding{
	"utf-8":        UTF8,
	"utf8":         UTF8,
	"utf-16le":     UTF16LE,
	"utf-16":       UTF16LE,
	"utf-16be":     UTF16BE,
	"iso-8859-1":   Latin1,
	"latin1":       Latin1,
	"windows-1252": Windows1252,
	"cp1252":       Windows1252,
}

// Lookup returns the encoding registered under name (case-insensitive).
// An empty name selects UTF-8.
func Lookup(name string) (*Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return UTF8, nil
	}
	if e, ok := byName[key]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// Name returns the canonical encoding name.
func (e *Encoding) Name() string { return e.name }

// Terminator returns the byte sequence that ends a line.
func (e *Encoding) Terminator() []byte { return e.terminator }

// Preamble returns the byte order mark writers may emit, or nil.
func (e *Encoding) Preamble() []byte { return e.preamble }

// Unit is the code unit width in bytes. Terminators only match at offsets
// that are a multiple of it.
func (e *Encoding) Unit() int { return e.unit }

// TrimTerminator strips a trailing terminator and a carriage return before
// it.
func (e *Encoding) TrimTerminator(line []byte) []byte {
	line = bytes.TrimSuffix(line, e.terminator)
	if len(line)%e.unit == 0 {
		line = bytes.TrimSuffix(line, e.cr)
	}
	return line
}

// Decode converts raw line bytes, terminator included or not, into text.
// Invalid sequences become U+FFFD rather than failing the line.
func (e *Encoding) Decode(line []byte) string {
	line = e.TrimTerminator(line)
	if len(line) == 0 {
		return ""
	}
	out, err := e.enc.NewDecoder().Bytes(line)
	if err != nil {
		return string(bytes.ToValidUTF8(line, []byte("�")))
	}
	return string(out)
}

// Encode converts text into the encoding's bytes. Mostly useful to build
// fixtures and exports.
func (e *Encoding) Encode(s string) ([]byte, error) {
	return e.enc.NewEncoder().Bytes([]byte(s))
}
