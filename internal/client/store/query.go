package store

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Signature is the canonical cache key of a normalized query. Keys are
// sorted by url.Values.Encode and filter values by crm.Query.Normalize, so
// equal queries always produce equal signatures.
func Signature(q crm.Query) string {
	v := url.Values{}
	v.Set("q", q.Search)
	for field, values := range q.Filters {
		v["f."+field] = values
	}
	v.Set("sort", q.Sort)
	if q.Desc {
		v.Set("dir", "desc")
	} else {
		v.Set("dir", "asc")
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Limit))
	if q.IncludeDeleted {
		v.Set("deleted", "1")
	}
	return v.Encode()
}

func (s *Store[T]) normalize(q crm.Query) crm.Query {
	return q.Normalize(s.pageSize)
}

// FetchList returns the page described by q, from the query cache when a
// fresh result exists and from the EntityService otherwise. Concurrent
// callers with the same signature share a single service call. A failed
// fetch leaves cached state untouched and sets the OpList error slot.
func (s *Store[T]) FetchList(ctx context.Context, q crm.Query) (View[T], error) {
	q = s.normalize(q)
	sig := Signature(q)
	epoch := s.begin(OpList)

	s.mu.Lock()
	if qr, ok := s.queries[sig]; ok && s.now().Sub(qr.fetchedAt) < s.ttl {
		v := s.viewLocked(qr, true)
		s.finishLocked(OpList, epoch, nil)
		s.mu.Unlock()
		s.rec.QueryCache(s.name, true)
		s.log.Debug(ctx, "query cache hit", "signature", sig)
		return v, nil
	}
	gen := s.generation
	s.mu.Unlock()
	s.rec.QueryCache(s.name, false)

	key := sig + "#" + strconv.FormatUint(gen, 10)
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.fetchPage(context.WithoutCancel(ctx), q, sig, gen)
	})

	var res singleflightResult
	select {
	case r := <-ch:
		res = singleflightResult{val: r.Val, err: r.Err}
	case <-ctx.Done():
		s.finish(OpList, epoch, ctx.Err())
		return View[T]{}, ctx.Err()
	}
	if res.err != nil {
		s.finish(OpList, epoch, res.err)
		return View[T]{}, res.err
	}

	qr := res.val.(*queryResult)
	s.mu.Lock()
	v := s.viewLocked(qr, false)
	s.finishLocked(OpList, epoch, nil)
	s.mu.Unlock()
	return v, nil
}

type singleflightResult struct {
	val any
	err error
}

// fetchPage performs the service call shared by one flight.
func (s *Store[T]) fetchPage(ctx context.Context, q crm.Query, sig string, gen uint64) (*queryResult, error) {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	start := time.Now()
	page, err := s.svc.FindMany(ctx, q)
	s.rec.Fetch(s.name, time.Since(start), err)
	if err != nil {
		s.log.Warn(ctx, "list fetch failed", "signature", sig, "error", err)
		return nil, err
	}

	qr := &queryResult{
		ids: make([]string, 0, len(page.Data)),
		info: PageInfo{
			Page:    page.Page,
			Limit:   page.Limit,
			Count:   page.Count,
			HasMore: page.HasMore,
		},
	}
	for _, e := range page.Data {
		qr.ids = append(qr.ids, e.GetID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	qr.fetchedAt = s.now()
	if epoch != s.epoch {
		return qr, nil
	}
	for _, e := range page.Data {
		s.putLocked(e)
	}
	if gen == s.generation {
		s.queries[sig] = qr
	}
	s.log.Debug(ctx, "list fetched", "signature", sig, "count", len(page.Data), "total", page.Count)
	return qr, nil
}

func (s *Store[T]) viewLocked(qr *queryResult, cached bool) View[T] {
	v := View[T]{
		IDs:       append([]string(nil), qr.ids...),
		PageInfo:  qr.info,
		FetchedAt: qr.fetchedAt,
		Cached:    cached,
		Items:     make([]T, 0, len(qr.ids)),
	}
	for _, id := range qr.ids {
		if e, ok := s.valueLocked(id); ok {
			v.Items = append(v.Items, e)
		}
	}
	return v
}

// Invalidate clears every cached query result. Entities stay cached.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()
}

func (s *Store[T]) invalidateLocked() {
	s.queries = map[string]*queryResult{}
	s.generation++
}

// InvalidateMatching clears cached query results whose signature matches the
// path.Match pattern, and returns how many were dropped.
func (s *Store[T]) InvalidateMatching(pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sig := range s.queries {
		if ok, _ := path.Match(pattern, sig); ok {
			delete(s.queries, sig)
			n++
		}
	}
	return n, nil
}

// FetchByID loads one entity from the service into the cache and returns it
// with pending patches applied.
func (s *Store[T]) FetchByID(ctx context.Context, id string) (T, error) {
	epoch := s.begin(OpGet)

	e, err := s.svc.FindByID(ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(OpGet, epoch, err)
	if err != nil {
		var zero T
		return zero, err
	}
	if epoch != s.epoch {
		return e, nil
	}
	s.putLocked(e)
	if v, ok := s.valueLocked(id); ok {
		return v, nil
	}
	return e, nil
}

// Load fetches the page of the active query and makes it the current view.
func (s *Store[T]) Load(ctx context.Context) (View[T], error) {
	s.mu.RLock()
	q := s.config
	s.mu.RUnlock()
	return s.loadQuery(ctx, q)
}

// Refresh invalidates the query cache and reloads the current view.
func (s *Store[T]) Refresh(ctx context.Context) (View[T], error) {
	s.Invalidate()
	return s.Load(ctx)
}

// loadQuery fetches q and, if the active query still differs from q only in
// its page, adopts q's page and result as the current view.
func (s *Store[T]) loadQuery(ctx context.Context, q crm.Query) (View[T], error) {
	v, err := s.FetchList(ctx, q)
	if err != nil {
		return v, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.config
	current.Page = q.Page
	if Signature(current) == Signature(q) {
		s.config.Page = q.Page
		s.view = &queryResult{ids: v.IDs, info: v.PageInfo, fetchedAt: v.FetchedAt}
	}
	return v, nil
}
