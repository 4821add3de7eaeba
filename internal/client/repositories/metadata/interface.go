// Package metadata persists small client-side key/value facts in the local
// sqlite database, most importantly the session that survives a restart.
package metadata

import "context"

// Session keys.
const (
	KeyUsername     = "session.username"
	KeyUserID       = "session.user_id"
	KeyRefreshToken = "session.refresh_token"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all pairs atomically.
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
