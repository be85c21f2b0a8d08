package zipfs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidPattern is returned when a filter rule is empty or tries to
	// traverse out of the archive root.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrUnsafePath is reported for entries whose name is empty or contains "..".
	ErrUnsafePath = errors.New("unsafe entry path")

	// ErrEntryTooLarge is reported for entries whose size cannot be held in
	// memory or exceeds LoadOpts.MaxEntrySize.
	ErrEntryTooLarge = errors.New("entry too large")
)

// ArchiveTooLargeError is returned when the archive exceeds
// LoadOpts.MaxArchiveSize. Nothing has been decompressed at that point.
type ArchiveTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *ArchiveTooLargeError) Error() string {
	return fmt.Sprintf("archive size %d exceeds limit %d", e.Size, e.Limit)
}

// MalformedError is returned when the central directory cannot be read.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed zip archive: %v", e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IOError is returned when the byte source fails while seeking or reading
// at the container level.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot %s archive: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
