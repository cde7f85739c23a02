// Package herrors defines the tagged error kinds returned across package
// boundaries in this module. Callers distinguish kinds with errors.Is
// against the sentinels below; call-site context is attached with Wrap/Wrapf
// without losing the sentinel identity.
package herrors

import "github.com/pkg/errors"

// Sentinel error kinds. NoRecords and NoSpace are internal control-flow
// signals: page returns them, and heapfile consumes them internally and
// never lets them escape one of its public methods. FileExists and FileEOF are returned as-is.
// The rest are surfaced with whatever context the caller attaches.
var (
	ErrFileExists     = errors.New("heapfile: file already exists")
	ErrFileEOF        = errors.New("heapfile: end of file chain")
	ErrNoRecords      = errors.New("heapfile: no more records on page")
	ErrNoSpace        = errors.New("heapfile: insufficient space on page")
	ErrInvalidRecLen  = errors.New("heapfile: invalid record length")
	ErrBadScanParam   = errors.New("heapfile: bad scan parameter")
	ErrPageNotPinned  = errors.New("heapfile: page not pinned")
	ErrBufMgr         = errors.New("heapfile: buffer manager error")
	ErrFileStore      = errors.New("heapfile: file store error")
	ErrNotOpen        = errors.New("heapfile: heap file not open")
	ErrScanNotStarted = errors.New("heapfile: scan not started")
)

// Wrap attaches call-site context to err while preserving its identity for
// errors.Is. Returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err, or any error it wraps, matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
