// Package refreshtokens declares the server-side repository contract for
// issued refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/server/models"
)

// Repository issues, consumes and purges refresh tokens. A refresh token is
// single use: Consume removes it in the same statement that reads it.
type Repository interface {
	// Create stores token for userID, valid until expires.
	Create(ctx context.Context, userID string, token string, expires time.Time) error

	// Consume deletes token and returns the row it held, or
	// common.ErrorNotFound when the token is unknown or was already used.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteExpired removes tokens that expired before now and reports how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
