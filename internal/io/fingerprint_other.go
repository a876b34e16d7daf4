//go:build !linux && !windows

package io

import (
	"os"
	"time"
)

func birthTime(_ string, info os.FileInfo) time.Time {
	return info.ModTime()
}
