package store

import (
	"context"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/google/uuid"
)

// Create validates payload, shows it immediately under a temporary id, and
// replaces it with the server's entity once the service confirms. On failure
// the temporary entry is dropped and the error returned.
func (s *Store[T]) Create(ctx context.Context, payload T) (T, error) {
	var zero T
	epoch := s.begin(OpCreate)

	if err := s.validate(ctx, OpCreate, Change[T]{Op: OpCreate, After: payload}); err != nil {
		s.finish(OpCreate, epoch, err)
		return zero, err
	}

	tmpID := TempIDPrefix + uuid.NewString()
	now := s.now()

	s.mu.Lock()
	stamp := crm.Patch{"id": tmpID, "created_at": now, "updated_at": now}
	if uid := s.userID(); uid != "" {
		stamp["created_by"] = uid
		stamp["updated_by"] = uid
	}
	optimistic, err := applyPatch(payload, stamp)
	if err != nil {
		s.finishLocked(OpCreate, epoch, err)
		s.mu.Unlock()
		return zero, err
	}
	if epoch == s.epoch {
		s.putLocked(optimistic)
	}
	s.mu.Unlock()

	created, err := s.svc.Create(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(tmpID)
	s.finishLocked(OpCreate, epoch, err)
	if err != nil {
		s.rec.Rollback(s.name, OpCreate)
		s.log.Warn(ctx, "create failed, temporary entry dropped", "tmp_id", tmpID, "error", err)
		return zero, err
	}
	if epoch == s.epoch {
		s.putLocked(created)
		s.invalidateLocked()
	}
	s.log.Debug(ctx, "created", "id", created.GetID(), "tmp_id", tmpID)
	return created, nil
}

// Update applies patch optimistically, then writes the server's full entity
// into the cache on success. On failure only this call's overlay layer is
// dropped, so reads revert to the last confirmed value.
func (s *Store[T]) Update(ctx context.Context, id string, patch crm.Patch) (T, error) {
	var zero T
	epoch := s.begin(OpUpdate)

	s.mu.RLock()
	before, wasCached := s.valueLocked(id)
	s.mu.RUnlock()

	after, err := s.candidate(id, before, wasCached, patch)
	if err == nil {
		err = s.validate(ctx, OpUpdate, Change[T]{Op: OpUpdate, ID: id, Before: before, After: after, Patch: patch})
	}
	if err != nil {
		s.finish(OpUpdate, epoch, err)
		return zero, err
	}

	s.mu.Lock()
	display := crm.Patch{"updated_at": s.now()}
	if uid := s.userID(); uid != "" {
		display["updated_by"] = uid
	}
	for k, v := range patch {
		display[k] = v
	}
	seq := s.addLayerLocked(id, layer{patch: display})
	s.mu.Unlock()

	updated, err := s.svc.Update(ctx, id, patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLayerLocked(id, seq)
	s.finishLocked(OpUpdate, epoch, err)
	if err != nil {
		s.rec.Rollback(s.name, OpUpdate)
		s.log.Warn(ctx, "update failed, rolled back", "id", id, "error", err)
		return zero, err
	}
	// An entity removed while the call was in flight stays removed.
	_, stillCached := s.cache[id]
	if epoch == s.epoch && (stillCached || !wasCached) {
		s.putLocked(updated)
		s.invalidateContainingLocked(id)
	}
	return updated, nil
}

// Delete hides id immediately and removes it from every structure once the
// service confirms. On failure the entity reappears.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	epoch := s.begin(OpDelete)

	s.mu.Lock()
	seq := s.addLayerLocked(id, layer{tombstone: true})
	s.mu.Unlock()

	err := s.svc.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLayerLocked(id, seq)
	s.finishLocked(OpDelete, epoch, err)
	if err != nil {
		s.rec.Rollback(s.name, OpDelete)
		s.log.Warn(ctx, "delete failed, restored", "id", id, "error", err)
		return err
	}
	if epoch == s.epoch {
		s.removeLocked(id)
	}
	return nil
}

// candidate computes the entity as it would look after patch, for rules.
func (s *Store[T]) candidate(id string, before T, cached bool, patch crm.Patch) (T, error) {
	if cached {
		return applyPatch(before, patch)
	}
	var zero T
	withID := crm.Patch{"id": id}
	return applyPatch(zero, withID, patch)
}
