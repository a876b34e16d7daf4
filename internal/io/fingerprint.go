package io

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrNotFound reports that the backing file does not exist.
	ErrNotFound = errors.New("source does not exist")
	// ErrAccessDenied reports that the backing file exists but cannot be read.
	ErrAccessDenied = errors.New("source cannot be accessed")
)

// Fingerprint is a cheap snapshot of a file used to decide whether anything
// changed since the last scan without reading content.
type Fingerprint struct {
	Created      time.Time
	LastModified time.Time
	Size         int64

	info os.FileInfo
}

// Equal reports whether all three observable fields match.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Size == o.Size &&
		f.Created.Equal(o.Created) &&
		f.LastModified.Equal(o.LastModified)
}

// IsZero reports whether f was never populated.
func (f Fingerprint) IsZero() bool {
	return f.Size == 0 && f.Created.IsZero() && f.LastModified.IsZero()
}

// NewFingerprint builds a fingerprint from raw values. Used by
// FileSystem implementations that are not backed by the OS.
func NewFingerprint(created, modified time.Time, size int64) Fingerprint {
	return Fingerprint{Created: created, LastModified: modified, Size: size}
}

// Stat takes the fingerprint of the file at path. Failures are classified
// into ErrNotFound or ErrAccessDenied.
func Stat(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, classify(path, err)
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%w: %s is a directory", ErrAccessDenied, path)
	}
	return Fingerprint{
		Created:      birthTime(path, info),
		LastModified: info.ModTime(),
		Size:         info.Size(),
		info:         info,
	}, nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	default:
		// Permission and sharing violations, as well as anything else the
		// OS refuses, leave the file present but unreadable.
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
}
