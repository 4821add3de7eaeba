package stores

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/foodcrm/internal/client/store"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Listing is a page of entities of any kind.
type Listing struct {
	Items  []any
	Info   store.PageInfo
	Cached bool
}

// Kind is a type-erased handle on one store, for callers such as the CLI
// that pick the entity kind at run time. Payloads are crm.Patch values keyed
// by column name.
type Kind interface {
	Name() string
	Schema() crm.Schema

	Load(ctx context.Context) (Listing, error)
	Refresh(ctx context.Context) (Listing, error)
	NextPage(ctx context.Context) (Listing, error)
	PrevPage(ctx context.Context) (Listing, error)
	GoToPage(ctx context.Context, n int) (Listing, error)
	LoadMore(ctx context.Context) (Listing, error)
	Query() crm.Query
	SetSearch(text string)
	SetFilter(field string, values ...string)
	ClearFilter(field string)
	SetSort(field string, desc bool)
	// Local searches the cache only.
	Local(text string) []any

	Show(ctx context.Context, id string) (any, error)
	Create(ctx context.Context, fields crm.Patch) (any, error)
	Update(ctx context.Context, id string, patch crm.Patch) (any, error)
	Delete(ctx context.Context, id string) error

	Select(id string) bool
	Toggle(id string) bool
	SelectAllVisible() int
	ClearSelection()
	Selected() []string
	DeleteSelected(ctx context.Context) (store.BulkOutcome, error)
	UpdateSelected(ctx context.Context, patch crm.Patch) (store.BulkOutcome, error)

	Warnings(op store.Op) []store.Violation
	Snapshot() store.Stats
	Reset()
}

type kind[T store.Entity] struct {
	*store.Store[T]
	schema crm.Schema
}

func newKind[T store.Entity](s *store.Store[T], schema crm.Schema) Kind {
	return &kind[T]{Store: s, schema: schema}
}

func (k *kind[T]) Schema() crm.Schema { return k.schema }

func listing[T store.Entity](v store.View[T], err error) (Listing, error) {
	if err != nil {
		return Listing{}, err
	}
	return Listing{Items: erase(v.Items), Info: v.PageInfo, Cached: v.Cached}, nil
}

func erase[T any](in []T) []any {
	out := make([]any, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

func (k *kind[T]) Load(ctx context.Context) (Listing, error)    { return listing(k.Store.Load(ctx)) }
func (k *kind[T]) Refresh(ctx context.Context) (Listing, error) { return listing(k.Store.Refresh(ctx)) }
func (k *kind[T]) NextPage(ctx context.Context) (Listing, error) {
	return listing(k.Store.NextPage(ctx))
}
func (k *kind[T]) PrevPage(ctx context.Context) (Listing, error) {
	return listing(k.Store.PrevPage(ctx))
}
func (k *kind[T]) LoadMore(ctx context.Context) (Listing, error) {
	return listing(k.Store.LoadMore(ctx))
}

func (k *kind[T]) GoToPage(ctx context.Context, n int) (Listing, error) {
	return listing(k.Store.GoToPage(ctx, n))
}

func (k *kind[T]) Local(text string) []any {
	all := k.Store.Filtered()
	if text == "" {
		return erase(all)
	}
	out := make([]any, 0, len(all))
	for _, e := range all {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if crm.MatchSearch(string(raw), k.schema.Search, text) {
			out = append(out, e)
		}
	}
	return out
}

func (k *kind[T]) Show(ctx context.Context, id string) (any, error) {
	if e, err := k.Store.Get(id); err == nil {
		return e, nil
	}
	return k.Store.FetchByID(ctx, id)
}

func (k *kind[T]) Create(ctx context.Context, fields crm.Patch) (any, error) {
	if err := k.schema.CheckPatch(fields); err != nil {
		return nil, err
	}
	var zero T
	payload, err := crm.ApplyPatch(zero, fields)
	if err != nil {
		return nil, err
	}
	return k.Store.Create(ctx, payload)
}

func (k *kind[T]) Update(ctx context.Context, id string, patch crm.Patch) (any, error) {
	if err := k.schema.CheckPatch(patch); err != nil {
		return nil, err
	}
	return k.Store.Update(ctx, id, patch)
}

func (k *kind[T]) UpdateSelected(ctx context.Context, patch crm.Patch) (store.BulkOutcome, error) {
	if err := k.schema.CheckPatch(patch); err != nil {
		return store.BulkOutcome{}, err
	}
	ids := k.Store.Selected()
	updates := make([]crm.BulkUpdate, len(ids))
	for i, id := range ids {
		updates[i] = crm.BulkUpdate{ID: id, Data: patch}
	}
	return k.Store.UpdateMany(ctx, updates)
}
