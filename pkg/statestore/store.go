// Package statestore persists bridge records as flat string field maps with
// expiry, plus short-lived ownership claims.
package statestore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist or has expired
var ErrNotFound = errors.New("record not found")

// Store is the key-value contract the orchestrator and intake rely on.
// Writes are partial: only the given fields are touched.
type Store interface {
	// CreateIfAbsent atomically writes fields and sets ttl only if id does not exist
	CreateIfAbsent(ctx context.Context, id string, fields map[string]string, ttl time.Duration) (bool, error)
	// CreateOrUpdate merges fields into an existing record. It returns
	// ErrNotFound when the record is missing or has expired.
	CreateOrUpdate(ctx context.Context, id string, fields map[string]string) error
	// Get returns all fields of the record or ErrNotFound
	Get(ctx context.Context, id string) (map[string]string, error)
	// SetExpiry resets the record's time to live
	SetExpiry(ctx context.Context, id string, ttl time.Duration) error
	// DeleteFields removes the named fields from the record
	DeleteFields(ctx context.Context, id string, names ...string) error
	// Claim takes key for owner if nobody holds it
	Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release drops key if owner still holds it
	Release(ctx context.Context, key, owner string) error
	// Extend resets the ttl of key if owner still holds it
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Ping checks connectivity
	Ping(ctx context.Context) error
}
