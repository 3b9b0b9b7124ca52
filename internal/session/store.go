// Package session declares the refresh-session store contract.
//
// The store is the single shared mutable resource of the auth subsystem.
// Each (userID, deviceID) pair owns at most one row; Save always overwrites,
// and that per-key last-write-wins upsert is the serialization point that
// makes token rotation and reuse detection work. No in-process caching sits
// in front of it — every request reads the store directly, so the server
// scales horizontally without session affinity.
package session

import (
	"context"
	"errors"

	"github.com/dayloop/planner/internal/model"
)

// ErrNotFound is returned by Find when no live session exists for the key.
// It is distinct from infrastructure errors: a store outage must never be
// reported as a missing session, because the auth service treats missing
// sessions as a security signal.
var ErrNotFound = errors.New("session: not found")

// Store is the durable per-(user, device) refresh session mapping.
type Store interface {
	// Save upserts the session row for (UserID, DeviceID), replacing any
	// prior token. The backing store must make this atomic per key.
	Save(ctx context.Context, s model.RefreshSession) error

	// Find returns the current session for the key, or ErrNotFound.
	// A row the backend has already evicted on expiry reads as absent;
	// a physically present but stale row is returned as-is, and the
	// caller performs its own expiry check.
	Find(ctx context.Context, userID int64, deviceID string) (*model.RefreshSession, error)

	// Delete removes the session for one device. Idempotent — deleting a
	// missing session is not an error.
	Delete(ctx context.Context, userID int64, deviceID string) error

	// DeleteAll removes every session the user has, on every device.
	// Idempotent. Used for explicit log-out-everywhere and for the
	// theft response.
	DeleteAll(ctx context.Context, userID int64) error
}
