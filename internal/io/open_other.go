//go:build !windows

package io

import "os"

// openShared opens path read-only. Unix never blocks concurrent writers,
// truncators or unlinkers of an open file.
func openShared(path string) (*os.File, error) {
	return os.Open(path)
}
