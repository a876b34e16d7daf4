// Package index holds the in-memory line index of a log source: where
// each line starts in the backing file. It never stores line content.
package index

import "sync"

// InvalidOffset marks a line whose position is unknown, either because the
// index does not (or no longer) contain it.
const InvalidOffset int64 = -1

// LineIndex stores byte offsets for each line in a file. Line numbers are
// positions in the index (0-based). All operations take a lock scoped to the
// index alone, so readers never wait for a scan cycle's file I/O.
type LineIndex struct {
	mu      sync.Mutex
	offsets []int64 // byte offset of each line start
}

// NewLineIndex creates an empty index with room for capacity lines.
func NewLineIndex(capacity int) *LineIndex {
	return &LineIndex{offsets: make([]int64, 0, capacity)}
}

// Append adds line starts at the end of the index and returns the line
// number of the first one.
func (idx *LineIndex) Append(offsets ...int64) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := len(idx.offsets)
	idx.offsets = append(idx.offsets, offsets...)
	return start
}

// Truncate drops every line from n onward and returns how many were
// removed.
func (idx *LineIndex) Truncate(n int) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n >= len(idx.offsets) {
		return 0
	}
	removed := len(idx.offsets) - n
	idx.offsets = idx.offsets[:n]
	return removed
}

// Clear empties the index and returns the number of lines it held.
func (idx *LineIndex) Clear() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := len(idx.offsets)
	idx.offsets = idx.offsets[:0]
	return n
}

// LineCount returns the total number of lines
func (idx *LineIndex) LineCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.offsets)
}

// ByteOffset returns the byte offset of a line, or InvalidOffset.
func (idx *LineIndex) ByteOffset(lineNum int) int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if lineNum < 0 || lineNum >= len(idx.offsets) {
		return InvalidOffset
	}
	return idx.offsets[lineNum]
}

// Last returns the line number and offset of the last line.
func (idx *LineIndex) Last() (int, int64, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.offsets) == 0 {
		return -1, InvalidOffset, false
	}
	n := len(idx.offsets) - 1
	return n, idx.offsets[n], true
}

// CopyOffsets writes the offset of each requested line into dst, which must
// be at least as long as lines. Out of range lines yield InvalidOffset.
func (idx *LineIndex) CopyOffsets(lines []int, dst []int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, line := range lines {
		if line < 0 || line >= len(idx.offsets) {
			dst[i] = InvalidOffset
			continue
		}
		dst[i] = idx.offsets[line]
	}
}

// CopyRange is CopyOffsets for the contiguous run start..start+len(dst).
func (idx *LineIndex) CopyRange(start int, dst []int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range dst {
		line := start + i
		if line < 0 || line >= len(idx.offsets) {
			dst[i] = InvalidOffset
			continue
		}
		dst[i] = idx.offsets[line]
	}
}
