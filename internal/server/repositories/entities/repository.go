// Package entities stores the CRM entity tables. One repository serves every
// kind: the SQL is built from the kind's crm.Schema, which doubles as the
// column whitelist for filters, sort keys and payload fields.
package entities

import (
	"context"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Row is one entity keyed by column name. NULL columns are absent.
type Row map[string]any

type Repository interface {
	// List returns one page of live rows (or all rows with IncludeDeleted)
	// and the number of rows matching q across all pages.
	List(ctx context.Context, q crm.Query) ([]Row, int, error)
	// Get returns a live row or common.ErrorNotFound.
	Get(ctx context.Context, id string) (Row, error)
	// Insert stamps created_by/updated_by with userID when it is non-empty.
	Insert(ctx context.Context, userID string, fields crm.Patch) (Row, error)
	// Update applies fields to a live row and returns the new row.
	Update(ctx context.Context, userID, id string, fields crm.Patch) (Row, error)
	// SoftDelete sets deleted_at on a live row.
	SoftDelete(ctx context.Context, userID, id string) error
}
