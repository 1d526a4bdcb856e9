// Package stores implements the persistence layer for each credential
// kind (verification codes, reset tickets, refresh-token families) on
// top of the ephemeral kv.Store primitives. Records are encoded as
// versioned binary blobs so that conditional swaps can rely on byte
// equality of the stored value.
package stores

import "errors"

// ErrNotFound is returned when a record is absent, expired, or corrupt.
// The cases are deliberately indistinguishable to the caller.
var ErrNotFound = errors.New("stores: record not found")
