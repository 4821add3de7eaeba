package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Entity is implemented by every cached record kind.
type Entity interface {
	GetID() string
	IsDeleted() bool
}

// EntityService is the remote collaborator a Store reads from and writes to.
// Implementations report failures as *common.ServiceError.
type EntityService[T Entity] interface {
	FindMany(ctx context.Context, q crm.Query) (crm.Page[T], error)
	FindByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, patch crm.Patch) (T, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (crm.BulkResult, error)
	UpdateMany(ctx context.Context, updates []crm.BulkUpdate) (crm.BulkResult, error)
}

// Op names an operation kind; each kind has its own error and loading slot.
type Op string

const (
	OpList       Op = "list"
	OpGet        Op = "get"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpUpdateMany Op = "update_many"
	OpDeleteMany Op = "delete_many"
)

// TempIDPrefix marks ids assigned locally to not-yet-confirmed creates.
const TempIDPrefix = "tmp-"

var (
	// ErrNotCached means the id is absent from the cache (or pending deletion).
	// It does not imply the entity is missing server-side.
	ErrNotCached = fmt.Errorf("not cached: %w", common.ErrorNotFound)

	// ErrNoPage is returned when paging past either end.
	ErrNoPage = errors.New("no such page")
)

// PageInfo is the paging metadata of a cached query result.
type PageInfo struct {
	Page    int
	Limit   int
	Count   int
	HasMore bool
}

// View is the result of a list fetch with overlay applied.
type View[T Entity] struct {
	Items     []T
	IDs       []string
	PageInfo  PageInfo
	FetchedAt time.Time
	// Cached is true when the result came from the query cache.
	Cached bool
}

// Stats is a point-in-time size summary, for diagnostics.
type Stats struct {
	Cached     int
	Pending    int
	Queries    int
	Selected   int
	Generation uint64
}
