// Package users stores user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/foodcrm/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its ID. A duplicate username yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound when no such user exists.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}
