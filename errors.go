// errors.go - public errors exposed by shard
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package shard

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a Shard file does not exist, or when
	// a looked-up key is not stored in the Shard.
	ErrNotFound = errors.New("not found")

	// ErrBadFormat is returned when a file's header or index fails
	// validation: wrong magic/version, violated offset invariants, a
	// truncated file, or an index entry pointing outside the object
	// region.
	ErrBadFormat = errors.New("bad shard format")

	// ErrBadKeyLength is returned when a key passed to Write is not
	// exactly KeyLen bytes.
	ErrBadKeyLength = errors.New("bad key length")

	// ErrTooManyObjects is returned when Write is called after the
	// declared object count has already been written.
	ErrTooManyObjects = errors.New("too many objects")

	// ErrCountMismatch is returned by Finalize when fewer objects were
	// written than declared.
	ErrCountMismatch = errors.New("object count mismatch")

	// ErrDuplicateKey is returned by Finalize when two written objects
	// share the same key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrFrozen is returned when using a Builder after Finalize or
	// Abort has already run.
	ErrFrozen = errors.New("shard already finalized")

	// ErrInternal indicates a bug: the perfect hash mapped two distinct
	// keys to the same slot, or produced a slot out of range.
	ErrInternal = errors.New("internal error")
)

// badFormat wraps ErrBadFormat with the file path and a human readable
// detail so a single log line identifies the offending Shard.
func badFormat(fn, detail string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", fn, fmt.Sprintf(detail, args...), ErrBadFormat)
}

// ioError wraps a filesystem error with the Shard path.
func ioError(fn, op string, err error) error {
	return fmt.Errorf("%s: %s: %w", fn, op, err)
}
