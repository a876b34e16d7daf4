package io

import (
	"fmt"
	"os"
)

// ReadMode selects how content reads reach the file.
type ReadMode int

const (
	// ReadModeFile reads through a regular file descriptor.
	ReadModeFile ReadMode = iota
	// ReadModeMmap maps the file into memory. Only suitable for files that
	// are never truncated while mapped.
	ReadModeMmap
)

// ParseReadMode maps a config string onto a ReadMode.
func ParseReadMode(s string) (ReadMode, error) {
	switch s {
	case "", "file":
		return ReadModeFile, nil
	case "mmap":
		return ReadModeMmap, nil
	}
	return ReadModeFile, fmt.Errorf("unknown read mode %q", s)
}

func (m ReadMode) String() string {
	if m == ReadModeMmap {
		return "mmap"
	}
	return "file"
}

// ReadHandle is a random access view of the backing file.
type ReadHandle interface {
	ReadAt(p []byte, off int64) (int, error)
	// Size is the number of bytes visible through this handle.
	Size() int64
	// Matches reports whether the handle still refers to the file described
	// by fp. A false result means the handle must be reopened.
	Matches(fp Fingerprint) bool
	Close() error
}

// FileSystem is the view of the disk the source works against.
type FileSystem interface {
	Stat(path string) (Fingerprint, error)
	Open(path string, mode ReadMode) (ReadHandle, error)
}

// OS is the FileSystem backed by the operating system.
type OS struct{}

// Stat implements FileSystem.
func (OS) Stat(path string) (Fingerprint, error) {
	return Stat(path)
}

// Open implements FileSystem. Files are always opened for shared read.
func (OS) Open(path string, mode ReadMode) (ReadHandle, error) {
	if mode == ReadModeMmap {
		return OpenMapped(path)
	}
	return OpenFile(path)
}

// FileHandle reads through an *os.File.
type FileHandle struct {
	f *os.File
}

// OpenFile opens path for shared read.
func OpenFile(path string) (*FileHandle, error) {
	f, err := openShared(path)
	if err != nil {
		return nil, classify(path, err)
	}
	return &FileHandle{f: f}, nil
}

// ReadAt reads len(p) bytes at offset
func (h *FileHandle) ReadAt(p []byte, off int64) (int, error) {
	return h.f.ReadAt(p, off)
}

// Size returns the current size of the open file.
func (h *FileHandle) Size() int64 {
	info, err := h.f.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Matches implements ReadHandle.
func (h *FileHandle) Matches(fp Fingerprint) bool {
	if fp.info == nil {
		return true
	}
	info, err := h.f.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(info, fp.info)
}

// Close closes the file
func (h *FileHandle) Close() error {
	return h.f.Close()
}
