// Package logging provides the structured, leveled logger shared across
// diskstore, buffer and heapfile. It is observability only: nothing in this
// module inspects a log line to decide control flow.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.Mutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
)

// Configure sets the minimum level logged, by name ("debug", "info", "warn",
// "error"). Unknown names fall back to "info".
func Configure(level string) {
	mu.Lock()
	defer mu.Unlock()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = log.Level(lvl)
}

// SetOutput redirects log output, mainly so tests can assert on emitted
// lines without polluting stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

// For returns a child logger tagged with a session id, used to correlate
// every log line belonging to one open heap file or diskstore handle.
func For(component, sessionID string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log.With().Str("component", component).Str("session_id", sessionID).Logger()
}

// L returns the package-level logger, untagged.
func L() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}
