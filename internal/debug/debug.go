// Package debug provides component-tagged diagnostic logging that is off
// unless enabled by LOGSRC_DEBUG or explicitly by the application.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

var (
	enabled atomic.Bool

	// debugMutex protects access to debug output
	debugMutex  sync.Mutex
	debugOutput io.Writer = os.Stderr
	debugFile   *os.File
)

func init() {
	if v := os.Getenv("LOGSRC_DEBUG"); v == "1" || v == "true" {
		enabled.Store(true)
	}
}

// Enable turns debug output on or off.
func Enable(on bool) {
	enabled.Store(on)
}

// IsEnabled returns true if debug output is on.
func IsEnabled() bool {
	return enabled.Load()
}

// SetOutput sets the writer for debug output. Pass nil to silence it.
func SetOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// OpenFile sends debug output to the file at path, appending.
func OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}

	debugMutex.Lock()
	defer debugMutex.Unlock()
	if debugFile != nil {
		debugFile.Close()
	}
	debugFile = f
	debugOutput = f
	return nil
}

// Close closes the debug log file if one is open.
func Close() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile == nil {
		return nil
	}
	err := debugFile.Close()
	debugFile = nil
	debugOutput = os.Stderr
	return err
}

// Log writes a line tagged with component when debug output is on.
func Log(component, format string, args ...any) {
	if !enabled.Load() {
		return
	}
	debugMutex.Lock()
	defer debugMutex.Unlock()
	if debugOutput == nil {
		return
	}
	fmt.Fprintf(debugOutput, "[DEBUG:%s] "+format+"\n", append([]any{component}, args...)...)
}
