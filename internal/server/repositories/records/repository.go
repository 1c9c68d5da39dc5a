// Package records stores the finance records of every user, one row per
// record with its payload as JSONB.
package records

import (
	"context"

	"github.com/dmitrijs2005/finkeeper/internal/server/models"
)

// Repository scopes every operation to the owning user; a record of another
// user behaves as missing.
type Repository interface {
	List(ctx context.Context, userID string, c models.Collection) ([]*models.Record, error)
	Get(ctx context.Context, userID string, c models.Collection, id string) (*models.Record, error)
	Create(ctx context.Context, r *models.Record) error
	// Update replaces Data and Version; a missing record yields
	// common.ErrorNotFound.
	Update(ctx context.Context, r *models.Record) error
	Delete(ctx context.Context, userID string, c models.Collection, id string) error
}
