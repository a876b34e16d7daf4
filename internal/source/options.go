package source

import (
	"fmt"
	"time"

	lsio "github.com/TimelordUK/logsrc/internal/io"
	"github.com/TimelordUK/logsrc/internal/scheduler"
	"github.com/TimelordUK/logsrc/internal/textenc"
)

// Scheduler runs the source's two periodic activities. *scheduler.Scheduler
// satisfies it.
type Scheduler interface {
	StartPeriodic(name string, task scheduler.Task) scheduler.Handle
	StopPeriodic(h scheduler.Handle)
	Wake(h scheduler.Handle)
}

// Options tune a Source. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Encoding *textenc.Encoding
	ReadMode lsio.ReadMode

	// FS defaults to the operating system.
	FS lsio.FileSystem
	// Scheduler defaults to a private scheduler closed with the source.
	Scheduler Scheduler

	// ScanInterval is the delay between scan cycles while there is work,
	// IdleInterval the delay once a cycle found nothing to do.
	ScanInterval time.Duration
	IdleInterval time.Duration
	// ReadIdleInterval is how often the read activity checks for requests
	// when its queue was empty.
	ReadIdleInterval time.Duration
	// ReadTimeout bounds a read whose context carries no deadline.
	ReadTimeout time.Duration

	// ScanBatchSize is how many discovered lines are buffered before they
	// are committed to the index and announced.
	ScanBatchSize int
	ChunkSize     int
	MaxLineBytes  int

	// Watch wakes the scan activity on filesystem events.
	Watch bool
	// DetectReplacement hashes the head of the file to notice a file that
	// was replaced by one at least as large.
	DetectReplacement bool
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Encoding:          textenc.UTF8,
		ReadMode:          lsio.ReadModeFile,
		ScanInterval:      0,
		IdleInterval:      100 * time.Millisecond,
		ReadIdleInterval:  10 * time.Millisecond,
		ReadTimeout:       5 * time.Second,
		ScanBatchSize:     1000,
		ChunkSize:         4096,
		MaxLineBytes:      1 << 20,
		Watch:             true,
		DetectReplacement: true,
	}
}

func (o Options) validate() error {
	switch {
	case o.Encoding == nil:
		return fmt.Errorf("encoding is required")
	case o.ScanInterval < 0, o.IdleInterval < 0, o.ReadIdleInterval < 0:
		return fmt.Errorf("intervals must not be negative")
	case o.ReadTimeout <= 0:
		return fmt.Errorf("read timeout must be positive")
	case o.ScanBatchSize < 1:
		return fmt.Errorf("scan batch size must be at least 1")
	case o.MaxLineBytes < 1:
		return fmt.Errorf("max line bytes must be at least 1")
	}
	return nil
}
