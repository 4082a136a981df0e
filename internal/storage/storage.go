// Package storage implements the append-only backend capability the engine
// is built on: append, full scan, and atomic bulk rewrite over a sequence of
// serialized rows, with row-ids assigned by the backend in append order.
package storage

import (
	tferrors "github.com/tinyflux/tinyflux/internal/errors"
)

// RawRow is a serialized point: timestamp, measurement, then interleaved
// key/value pairs with a tag/field discriminator prefix (see
// internal/serialize).
type RawRow []string

// StoredRow pairs a raw row with the row-id the backend assigned it.
type StoredRow struct {
	ID  int
	Raw RawRow
}

// Backend is the storage capability required by the engine. Implementations
// must never read storage on append, and must leave prior content intact if
// Rewrite fails partway through (stage-and-swap).
type Backend interface {
	// Append writes a single row and returns its assigned row-id.
	Append(row RawRow) (int, error)
	// AppendMany writes rows in order and returns their assigned row-ids,
	// also in order.
	AppendMany(rows []RawRow) ([]int, error)
	// ReadAll returns every row currently in the backend, in row-id order.
	ReadAll() ([]StoredRow, error)
	// Rewrite atomically replaces the backend's contents with rows,
	// reassigning dense row-ids 0..len(rows)-1. On failure the backend's
	// prior contents must remain readable.
	Rewrite(rows []RawRow) error
	// Len returns the current row count.
	Len() (int, error)
	// Close releases any resources the backend holds (file handles,
	// connections). Safe to call on backends with nothing to release.
	Close() error
}

func wrapIOError(message string, cause error) error {
	return tferrors.NewStorageError(tferrors.CodeIOFailure, message, cause)
}

func swapFailedError(message string, cause error) error {
	return tferrors.NewStorageError(tferrors.CodeSwapFailed, message, cause)
}

func closedError(message string) error {
	return tferrors.New(tferrors.ErrCategoryStorage, tferrors.CodeBackendClosed, message)
}
