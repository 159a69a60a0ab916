// Package kv is the narrow view of the shared Redis this service is allowed:
// string keys, opaque byte values, optional TTL on writes. The store is owned
// jointly with the login web app, which populates the session and token keys.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist. Absence is a
// normal outcome for every key this service reads, not an error condition.
var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}
