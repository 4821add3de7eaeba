package models

import "time"

// RefreshToken is one issued, not yet rotated refresh token.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
