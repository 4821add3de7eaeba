package store

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// Get returns the entity with pending patches applied. It returns
// ErrNotCached when id is not cached or is pending deletion; callers that
// need the entity regardless should use FetchByID.
func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.valueLocked(id)
	if !ok {
		var zero T
		return zero, ErrNotCached
	}
	return v, nil
}

// Contains reports whether Get(id) would succeed. It lets sibling stores use
// this store as a Lookup.
func (s *Store[T]) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.valueLocked(id)
	return ok
}

// Confirmed returns the cached server value of id without pending patches.
func (s *Store[T]) Confirmed(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[id]
	return v, ok
}

// Pending reports whether id has an in-flight optimistic mutation.
func (s *Store[T]) Pending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlay[id]) > 0
}

// Put inserts or overwrites the confirmed value of e.
func (s *Store[T]) Put(e T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(e)
}

// Remove drops id from the cache, the selection, the current view and from
// every cached query result that lists it.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store[T]) putLocked(e T) {
	id := e.GetID()
	if _, known := s.cache[id]; !known {
		s.order = append(s.order, id)
	}
	s.cache[id] = e
}

func (s *Store[T]) dropLocked(id string) {
	if _, known := s.cache[id]; !known {
		return
	}
	delete(s.cache, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *Store[T]) removeLocked(id string) {
	s.dropLocked(id)
	delete(s.overlay, id)
	delete(s.selection, id)
	s.invalidateContainingLocked(id)
	if s.view != nil {
		if i := slices.Index(s.view.ids, id); i >= 0 {
			s.view.ids = slices.Delete(slices.Clone(s.view.ids), i, i+1)
		}
	}
}

// invalidateContainingLocked drops cached query results listing id.
func (s *Store[T]) invalidateContainingLocked(id string) {
	for sig, qr := range s.queries {
		if slices.Contains(qr.ids, id) {
			delete(s.queries, sig)
		}
	}
}

// valueLocked merges the overlay of id onto its cached value. A tombstone
// layer hides the entity.
func (s *Store[T]) valueLocked(id string) (T, bool) {
	base, ok := s.cache[id]
	if !ok {
		var zero T
		return zero, false
	}
	layers := s.overlay[id]
	if len(layers) == 0 {
		return base, true
	}

	patches := make([]crm.Patch, 0, len(layers))
	for _, l := range layers {
		if l.tombstone {
			var zero T
			return zero, false
		}
		patches = append(patches, l.patch)
	}
	merged, err := applyPatch(base, patches...)
	if err != nil {
		s.log.Error(context.Background(), "overlay merge failed", "id", id, "error", err)
		return base, true
	}
	return merged, true
}

func (s *Store[T]) addLayerLocked(id string, l layer) uint64 {
	s.seq++
	l.seq = s.seq
	s.overlay[id] = append(s.overlay[id], l)
	return l.seq
}

// dropLayerLocked removes exactly one layer; other pending mutations of the
// same id keep theirs.
func (s *Store[T]) dropLayerLocked(id string, seq uint64) {
	layers := s.overlay[id]
	i := slices.IndexFunc(layers, func(l layer) bool { return l.seq == seq })
	if i < 0 {
		return
	}
	layers = slices.Delete(slices.Clone(layers), i, i+1)
	if len(layers) == 0 {
		delete(s.overlay, id)
		return
	}
	s.overlay[id] = layers
}

func applyPatch[T any](base T, patches ...crm.Patch) (T, error) {
	return crm.ApplyPatch(base, patches...)
}
