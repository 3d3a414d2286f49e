// Package debug provides conditional debug logging for kerrigan.
//
// Debug logging is enabled by setting the KERRIGAN_DEBUG environment variable:
//
//	KERRIGAN_DEBUG=1 kerrigan -data graph_data.json
//
// When enabled, debug messages are written to stderr (or the writer installed
// with SetOutput) with timestamps. When disabled, Log and friends are no-ops.
//
// Warnings are different: Warn always records, because load failures and
// dropped links must leave a trace even without debug mode. While the TUI
// runs, cmd/kerrigan points both loggers at kerrigan.log in the data
// directory so the alternate screen is not corrupted.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[KERRIGAN] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
	warner  = log.New(os.Stderr, prefix+"WARN ", log.Ltime)
)

func init() {
	if os.Getenv("KERRIGAN_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects both the debug and the warning logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		logger.SetOutput(w)
	} else {
		logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
	}
	warner.SetOutput(w)
}

func active() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if l := active(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	}
func LogEnterExit(name string) func() {
	l := active()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Warn records a warning regardless of debug mode.
func Warn(format string, args ...any) {
	mu.Lock()
	w := warner
	mu.Unlock()
	w.Printf(format, args...)
}
