// Package models holds the server's persistence records that are not CRM
// entities: user accounts and issued refresh tokens.
package models

import "time"

type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}
