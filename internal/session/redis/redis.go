// Package redis implements the session store on Redis.
//
// Each refresh session is one key, session:{userID}:{deviceID}, holding the
// JSON-encoded session with a TTL equal to the refresh token's remaining
// lifetime. SET is atomic per key, which gives Save the last-write-wins
// upsert semantics rotation depends on, and the TTL makes expired sessions
// read as absent without any sweeper process.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/session"
)

// compile-time check that *Store implements session.Store
var _ session.Store = (*Store)(nil)

// Store is a Redis-backed session.Store.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session/redis: pinging %s: %w", addr, err)
	}

	return &Store{client: client}, nil
}

// Close releases the client's connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func sessionKey(userID int64, deviceID string) string {
	return fmt.Sprintf("session:%d:%s", userID, deviceID)
}

// Save upserts the session row, replacing any prior token for the device.
func (s *Store) Save(ctx context.Context, sess model.RefreshSession) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// Already expired — storing it would be indistinguishable from
		// not storing it, so just make sure no stale row remains.
		return s.Delete(ctx, sess.UserID, sess.DeviceID)
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session/redis: encoding session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sess.UserID, sess.DeviceID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("session/redis: saving session for user %d device %s: %w",
			sess.UserID, sess.DeviceID, err)
	}
	return nil
}

// Find returns the live session for (userID, deviceID), or
// session.ErrNotFound once the TTL has evicted it.
func (s *Store) Find(ctx context.Context, userID int64, deviceID string) (*model.RefreshSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(userID, deviceID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("session/redis: finding session for user %d device %s: %w",
			userID, deviceID, err)
	}

	var sess model.RefreshSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session/redis: decoding session for user %d device %s: %w",
			userID, deviceID, err)
	}
	return &sess, nil
}

// Delete removes one device's session. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, userID int64, deviceID string) error {
	if err := s.client.Del(ctx, sessionKey(userID, deviceID)).Err(); err != nil {
		return fmt.Errorf("session/redis: deleting session for user %d device %s: %w",
			userID, deviceID, err)
	}
	return nil
}

// DeleteAll removes every session the user has. SCAN (not KEYS) so a large
// keyspace doesn't block the server.
func (s *Store) DeleteAll(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("session:%d:*", userID)

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session/redis: scanning sessions for user %d: %w", userID, err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session/redis: deleting %d sessions for user %d: %w",
			len(keys), userID, err)
	}
	return nil
}
