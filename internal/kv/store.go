package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has elapsed.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("kv: key not found")

// ErrUnavailable wraps backend failures. Callers must treat it as
// "cannot verify", never as success.
var ErrUnavailable = errors.New("kv: store unavailable")

// Store abstracts ephemeral key-value state with per-key TTL.
// Implementations: Redis (production) or in-memory (embedding / tests).
//
// Every single-use guarantee in the engine rests on TakeAndDelete,
// CompareAndSwap, and CompareAndDelete being atomic with respect to
// concurrent callers on the same key: exactly one caller wins, all
// others observe the post-state. Implementations must preserve this
// across horizontally scaled instances sharing one backend.
type Store interface {
	// Put overwrites any existing value at key and resets its TTL.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value at key, or ErrNotFound. Never returns an
	// expired value.
	Get(ctx context.Context, key string) ([]byte, error)

	// TakeAndDelete atomically reads and deletes key. Exactly one of N
	// concurrent callers observes the value; the rest get ErrNotFound.
	TakeAndDelete(ctx context.Context, key string) ([]byte, error)

	// Delete removes the given keys. Idempotent: missing keys are not
	// an error.
	Delete(ctx context.Context, keys ...string) error

	// CompareAndSwap replaces the value at key with next and sets ttl,
	// but only if the current value is byte-equal to expect. Returns
	// whether the swap happened. A missing key never swaps.
	CompareAndSwap(ctx context.Context, key string, expect, next []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only if the current value is
	// byte-equal to expect. Returns whether the delete happened.
	CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error)
}
