package source

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed source.
var ErrClosed = errors.New("source is closed")

// ScanError records why a scan cycle gave up. It is published through
// Properties.LastError, never returned from the background activities.
type ScanError struct {
	Op         string
	Path       string
	Reason     EmptyReason
	Underlying error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Reason, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Underlying
}
