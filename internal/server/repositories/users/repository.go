package users

import (
	"context"

	"github.com/dmitrijs2005/finkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	// IncrementCurrentVersion bumps the per-user change counter and returns
	// the new value.
	IncrementCurrentVersion(ctx context.Context, userID string) (int64, error)
}
