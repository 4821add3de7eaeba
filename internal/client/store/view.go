package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Query returns a copy of the active query configuration.
func (s *Store[T]) Query() crm.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := s.config
	q.Filters = cloneFilters(q.Filters)
	return q
}

// SetQuery replaces the active configuration. Like every setter below it
// rewinds to page 1, drops the current view and invalidates all cached query
// results; call Load to fetch.
func (s *Store[T]) SetQuery(q crm.Query) {
	s.configure(func(c *crm.Query) {
		*c = q
		c.Filters = cloneFilters(q.Filters)
	})
}

func (s *Store[T]) SetSearch(text string) {
	s.configure(func(c *crm.Query) { c.Search = text })
}

// SetFilter restricts field to values. No values clears the filter.
func (s *Store[T]) SetFilter(field string, values ...string) {
	s.configure(func(c *crm.Query) {
		c.Filters = cloneFilters(c.Filters)
		if len(values) == 0 {
			delete(c.Filters, field)
			return
		}
		if c.Filters == nil {
			c.Filters = map[string][]string{}
		}
		c.Filters[field] = append([]string(nil), values...)
	})
}

func (s *Store[T]) ClearFilter(field string) {
	s.SetFilter(field)
}

func (s *Store[T]) ClearFilters() {
	s.configure(func(c *crm.Query) { c.Filters = nil })
}

func (s *Store[T]) SetSort(field string, desc bool) {
	s.configure(func(c *crm.Query) {
		c.Sort = field
		c.Desc = desc
	})
}

func (s *Store[T]) SetPageSize(n int) {
	s.configure(func(c *crm.Query) { c.Limit = n })
}

func (s *Store[T]) SetIncludeDeleted(on bool) {
	s.configure(func(c *crm.Query) { c.IncludeDeleted = on })
}

func (s *Store[T]) configure(fn func(c *crm.Query)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config)
	s.config.Page = 1
	s.config = s.normalize(s.config)
	s.view = nil
	s.invalidateLocked()
}

// NextPage loads the page after the current view.
func (s *Store[T]) NextPage(ctx context.Context) (View[T], error) {
	s.mu.RLock()
	q, view := s.config, s.view
	s.mu.RUnlock()
	if view == nil {
		return s.Load(ctx)
	}
	if !view.info.HasMore {
		return View[T]{}, ErrNoPage
	}
	q.Page++
	return s.loadQuery(ctx, q)
}

// PrevPage loads the page before the current view.
func (s *Store[T]) PrevPage(ctx context.Context) (View[T], error) {
	s.mu.RLock()
	q := s.config
	s.mu.RUnlock()
	if q.Page <= 1 {
		return View[T]{}, ErrNoPage
	}
	q.Page--
	return s.loadQuery(ctx, q)
}

// GoToPage loads page n. Pages past the known total count are rejected
// without a service call.
func (s *Store[T]) GoToPage(ctx context.Context, n int) (View[T], error) {
	s.mu.RLock()
	q, view := s.config, s.view
	s.mu.RUnlock()
	if n < 1 {
		return View[T]{}, ErrNoPage
	}
	if view != nil && view.info.Limit > 0 && n > 1 && (n-1)*view.info.Limit >= view.info.Count {
		return View[T]{}, ErrNoPage
	}
	q.Page = n
	return s.loadQuery(ctx, q)
}

// LoadMore fetches the page after the current view and makes it the view,
// replacing the previous ids. Accumulating pages for scrolling is up to the
// caller.
func (s *Store[T]) LoadMore(ctx context.Context) (View[T], error) {
	return s.NextPage(ctx)
}

// Items returns the entities of the current view with pending patches
// applied. Entities pending deletion are omitted.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return nil
	}
	return s.viewLocked(s.view, false).Items
}

// Page returns paging metadata of the current view; ok is false before the
// first Load after a reset or configuration change.
func (s *Store[T]) Page() (PageInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return PageInfo{}, false
	}
	return s.view.info, true
}

// Filtered applies the active search, filters and sort to every cached entity
// without calling the service. Fields are matched by JSON path. Soft-deleted
// entities are skipped unless the query includes them.
func (s *Store[T]) Filtered() []T {
	s.mu.RLock()
	q := s.config
	type row struct {
		e   T
		doc string
	}
	rows := make([]row, 0, len(s.order))
	for _, id := range s.order {
		e, ok := s.valueLocked(id)
		if !ok || (e.IsDeleted() && !q.IncludeDeleted) {
			continue
		}
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		rows = append(rows, row{e: e, doc: string(raw)})
	}
	fields := s.searchFields
	s.mu.RUnlock()

	rows = slices.DeleteFunc(rows, func(r row) bool {
		return !crm.MatchSearch(r.doc, fields, q.Search) || !crm.MatchFilters(r.doc, q.Filters)
	})
	if q.Sort != "" {
		slices.SortStableFunc(rows, func(a, b row) int {
			c := crm.CompareField(a.doc, b.doc, q.Sort)
			if q.Desc {
				return -c
			}
			return c
		})
	}

	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.e
	}
	return out
}

func cloneFilters(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
