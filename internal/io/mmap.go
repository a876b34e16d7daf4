package io

import (
	"os"

	"golang.org/x/exp/mmap"
)

// MappedFile provides memory-mapped read access to a file
type MappedFile struct {
	reader *mmap.ReaderAt
	info   os.FileInfo
	path   string
}

// OpenMapped opens a file with memory mapping
func OpenMapped(path string) (*MappedFile, error) {
	m := &MappedFile{path: path}
	if err := m.remap(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MappedFile) remap() error {
	info, err := os.Stat(m.path)
	if err != nil {
		return classify(m.path, err)
	}
	reader, err := mmap.Open(m.path)
	if err != nil {
		return classify(m.path, err)
	}
	if m.reader != nil {
		m.reader.Close()
	}
	m.reader = reader
	m.info = info
	return nil
}

// ReadAt reads len(p) bytes at offset
func (m *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	return m.reader.ReadAt(p, off)
}

// Size returns the mapped length
func (m *MappedFile) Size() int64 {
	return int64(m.reader.Len())
}

// Matches reports whether the mapping still covers the whole file at fp.
// A grown file is remapped in place; a shrunk or replaced one is not.
func (m *MappedFile) Matches(fp Fingerprint) bool {
	if fp.info != nil && !os.SameFile(m.info, fp.info) {
		return false
	}
	switch {
	case fp.Size < m.Size():
		return false
	case fp.Size > m.Size():
		changed, err := m.Refresh()
		return err == nil && changed
	}
	return true
}

// Refresh re-maps the file if it has grown, returns true if size changed
func (m *MappedFile) Refresh() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, classify(m.path, err)
	}
	if info.Size() <= m.Size() {
		return false, nil
	}
	if err := m.remap(); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the memory mapping
func (m *MappedFile) Close() error {
	return m.reader.Close()
}
