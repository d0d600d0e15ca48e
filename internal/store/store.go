// Package store defines storage errors shared by the postgres and memory
// backends.
package store

import "errors"

// ErrNotFound is returned when a requested record does not exist or is not
// visible to the requesting owner.
var ErrNotFound = errors.New("not found")
