package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/google/uuid"
)

type record interface {
	GetID() string
	IsDeleted() bool
}

// MemoryEntityService keeps one table in process memory with the same
// semantics as the server: soft delete, search, filters, sort, paging and
// per-id bulk results. The CLI uses it as its offline backend.
type MemoryEntityService[T record] struct {
	schema crm.Schema
	userID func() string
	now    func() time.Time

	mu    sync.Mutex
	rows  map[string]T
	order []string
}

func NewMemoryEntityService[T record](schema crm.Schema, userID func() string) *MemoryEntityService[T] {
	if userID == nil {
		userID = func() string { return "" }
	}
	return &MemoryEntityService[T]{
		schema: schema,
		userID: userID,
		now:    time.Now,
		rows:   map[string]T{},
	}
}

func (m *MemoryEntityService[T]) FindMany(ctx context.Context, q crm.Query) (crm.Page[T], error) {
	q = q.Normalize(common.DefaultPageSize)
	for field := range q.Filters {
		if _, ok := m.schema.Column(field); !ok {
			return crm.Page[T]{}, badRequest(fmt.Errorf("%w: filter on %q", common.ErrUnknownField, field))
		}
	}
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = m.schema.DefaultSort
	}

	m.mu.Lock()
	type row struct {
		e   T
		doc string
	}
	var rows []row
	for _, id := range m.order {
		e := m.rows[id]
		if e.IsDeleted() && !q.IncludeDeleted {
			continue
		}
		raw, err := json.Marshal(e)
		if err != nil {
			m.mu.Unlock()
			return crm.Page[T]{}, err
		}
		doc := string(raw)
		if crm.MatchSearch(doc, m.schema.Search, q.Search) && crm.MatchFilters(doc, q.Filters) {
			rows = append(rows, row{e: e, doc: doc})
		}
	}
	m.mu.Unlock()

	if sortBy != "" {
		slices.SortStableFunc(rows, func(a, b row) int {
			c := crm.CompareField(a.doc, b.doc, sortBy)
			if q.Desc {
				return -c
			}
			return c
		})
	}

	start := min(q.Offset(), len(rows))
	end := min(start+q.Limit, len(rows))
	page := crm.Page[T]{Data: make([]T, 0, end-start), Page: q.Page, Limit: q.Limit, Count: len(rows), HasMore: end < len(rows)}
	for _, r := range rows[start:end] {
		page.Data = append(page.Data, r.e)
	}
	return page, nil
}

// FindByID returns id even when it is soft-deleted.
func (m *MemoryEntityService[T]) FindByID(ctx context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		var zero T
		return zero, m.notFound(id)
	}
	return e, nil
}

func (m *MemoryEntityService[T]) Create(ctx context.Context, payload T) (T, error) {
	var zero T
	fields, err := crm.PatchOf(m.schema, payload)
	if err != nil {
		return zero, badRequest(err)
	}
	now := m.now().UTC()
	stamp := crm.Patch{"id": uuid.NewString(), "created_at": now, "updated_at": now}
	if uid := m.userID(); uid != "" {
		stamp["created_by"] = uid
		stamp["updated_by"] = uid
	}
	e, err := crm.ApplyPatch(zero, fields, stamp)
	if err != nil {
		return zero, badRequest(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[e.GetID()] = e
	m.order = append(m.order, e.GetID())
	return e, nil
}

func (m *MemoryEntityService[T]) Update(ctx context.Context, id string, patch crm.Patch) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, patch)
}

func (m *MemoryEntityService[T]) updateLocked(id string, patch crm.Patch) (T, error) {
	var zero T
	if len(patch) == 0 {
		return zero, badRequest(common.ErrNothingToUpdate)
	}
	if err := m.schema.CheckPatch(patch); err != nil {
		return zero, badRequest(err)
	}
	e, ok := m.rows[id]
	if !ok || e.IsDeleted() {
		return zero, m.notFound(id)
	}
	stamp := crm.Patch{"updated_at": m.now().UTC()}
	if uid := m.userID(); uid != "" {
		stamp["updated_by"] = uid
	}
	updated, err := crm.ApplyPatch(e, patch, stamp)
	if err != nil {
		return zero, badRequest(err)
	}
	m.rows[id] = updated
	return updated, nil
}

// Delete soft-deletes id.
func (m *MemoryEntityService[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *MemoryEntityService[T]) deleteLocked(id string) error {
	e, ok := m.rows[id]
	if !ok || e.IsDeleted() {
		return m.notFound(id)
	}
	deleted, err := crm.ApplyPatch(e, crm.Patch{"deleted_at": m.now().UTC()})
	if err != nil {
		return err
	}
	m.rows[id] = deleted
	return nil
}

func (m *MemoryEntityService[T]) DeleteMany(ctx context.Context, ids []string) (crm.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res crm.BulkResult
	for _, id := range ids {
		if err := m.deleteLocked(id); err != nil {
			res.Errors = append(res.Errors, crm.BulkError{ID: id, Error: err.Error()})
		}
	}
	res.Success = len(res.Errors) == 0
	return res, nil
}

func (m *MemoryEntityService[T]) UpdateMany(ctx context.Context, updates []crm.BulkUpdate) (crm.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res crm.BulkResult
	for _, u := range updates {
		if _, err := m.updateLocked(u.ID, u.Data); err != nil {
			res.Errors = append(res.Errors, crm.BulkError{ID: u.ID, Error: err.Error()})
		}
	}
	res.Success = len(res.Errors) == 0
	return res, nil
}

func (m *MemoryEntityService[T]) notFound(id string) error {
	return common.NewServiceError(http.StatusNotFound, fmt.Sprintf("%s %s not found", m.schema.Kind, id), nil)
}

func badRequest(err error) error {
	var se *common.ServiceError
	if errors.As(err, &se) {
		return err
	}
	return common.NewServiceError(http.StatusBadRequest, err.Error(), err)
}
