package store

import (
	"context"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

// BulkStatus summarizes a bulk call.
type BulkStatus string

const (
	BulkSucceeded BulkStatus = "success"
	BulkPartial   BulkStatus = "partial"
	BulkFailed    BulkStatus = "failed"
)

// BulkOutcome reports per-id results of UpdateMany/DeleteMany. Failed ids
// were rolled back; succeeded ids were committed.
type BulkOutcome struct {
	Status    BulkStatus
	Succeeded []string
	Failed    []crm.BulkError
}

// FailedIDs lists the ids that were rolled back.
func (o BulkOutcome) FailedIDs() []string {
	out := make([]string, len(o.Failed))
	for i, f := range o.Failed {
		out[i] = f.ID
	}
	return out
}

func newOutcome(succeeded []string, failed []crm.BulkError) BulkOutcome {
	o := BulkOutcome{Succeeded: succeeded, Failed: failed}
	switch {
	case len(failed) == 0:
		o.Status = BulkSucceeded
	case len(succeeded) == 0:
		o.Status = BulkFailed
	default:
		o.Status = BulkPartial
	}
	return o
}

// UpdateMany applies every patch optimistically and commits or rolls back each
// id independently according to the service's per-id result. Updates rejected
// by a blocking rule are reported as failed without reaching the service. An
// error is returned only when the call as a whole failed; then every id is
// rolled back.
func (s *Store[T]) UpdateMany(ctx context.Context, updates []crm.BulkUpdate) (BulkOutcome, error) {
	epoch := s.begin(OpUpdateMany)

	var (
		send     []crm.BulkUpdate
		rejected []crm.BulkError
	)
	for _, u := range updates {
		s.mu.RLock()
		before, cached := s.valueLocked(u.ID)
		s.mu.RUnlock()

		after, err := s.candidate(u.ID, before, cached, u.Data)
		if err == nil {
			err = s.validate(ctx, OpUpdateMany, Change[T]{Op: OpUpdateMany, ID: u.ID, Before: before, After: after, Patch: u.Data})
		}
		if err != nil {
			rejected = append(rejected, crm.BulkError{ID: u.ID, Error: err.Error()})
			continue
		}
		send = append(send, u)
	}

	pending := make([]layerRef, 0, len(send))
	s.mu.Lock()
	for _, u := range send {
		pending = append(pending, layerRef{id: u.ID, seq: s.addLayerLocked(u.ID, layer{patch: u.Data})})
	}
	s.mu.Unlock()

	var (
		res crm.BulkResult
		err error
	)
	if len(send) > 0 {
		res, err = s.svc.UpdateMany(ctx, send)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pending {
		s.dropLayerLocked(p.id, p.seq)
	}
	if err != nil {
		s.finishLocked(OpUpdateMany, epoch, err)
		s.rec.Rollback(s.name, OpUpdateMany)
		s.log.Warn(ctx, "bulk update failed, rolled back", "count", len(send), "error", err)
		return BulkOutcome{}, err
	}

	failed := failedSet(res)
	var succeeded []string
	for _, u := range send {
		if _, bad := failed[u.ID]; bad {
			continue
		}
		succeeded = append(succeeded, u.ID)
		if epoch != s.epoch {
			continue
		}
		if base, ok := s.cache[u.ID]; ok {
			committed, perr := applyPatch(base, u.Data)
			if perr != nil {
				s.log.Error(ctx, "bulk update commit failed", "id", u.ID, "error", perr)
				continue
			}
			s.putLocked(committed)
		}
		s.invalidateContainingLocked(u.ID)
	}

	out := newOutcome(succeeded, append(rejected, res.Errors...))
	s.finishLocked(OpUpdateMany, epoch, nil)
	s.rec.Bulk(s.name, OpUpdateMany, out.Status)
	if out.Status != BulkSucceeded {
		s.log.Warn(ctx, "bulk update finished with failures", "failed", out.FailedIDs(), "status", out.Status)
	}
	return out, nil
}

// DeleteMany hides every id immediately, removes the ids the service deleted,
// and restores the ids it reports as failed.
func (s *Store[T]) DeleteMany(ctx context.Context, ids []string) (BulkOutcome, error) {
	epoch := s.begin(OpDeleteMany)

	pending := make([]layerRef, 0, len(ids))
	s.mu.Lock()
	for _, id := range ids {
		pending = append(pending, layerRef{id: id, seq: s.addLayerLocked(id, layer{tombstone: true})})
	}
	s.mu.Unlock()

	var (
		res crm.BulkResult
		err error
	)
	if len(ids) > 0 {
		res, err = s.svc.DeleteMany(ctx, ids)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pending {
		s.dropLayerLocked(p.id, p.seq)
	}
	if err != nil {
		s.finishLocked(OpDeleteMany, epoch, err)
		s.rec.Rollback(s.name, OpDeleteMany)
		s.log.Warn(ctx, "bulk delete failed, restored", "count", len(ids), "error", err)
		return BulkOutcome{}, err
	}

	failed := failedSet(res)
	var succeeded []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, bad := failed[id]; bad {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		succeeded = append(succeeded, id)
		if epoch == s.epoch {
			s.removeLocked(id)
		}
	}

	out := newOutcome(succeeded, res.Errors)
	s.finishLocked(OpDeleteMany, epoch, nil)
	s.rec.Bulk(s.name, OpDeleteMany, out.Status)
	if out.Status != BulkSucceeded {
		s.log.Warn(ctx, "bulk delete finished with failures", "failed", out.FailedIDs(), "status", out.Status)
	}
	return out, nil
}

// DeleteSelected bulk-deletes the current selection.
func (s *Store[T]) DeleteSelected(ctx context.Context) (BulkOutcome, error) {
	return s.DeleteMany(ctx, s.Selected())
}

// layerRef names one overlay layer added by a bulk call. An id may occur
// more than once in a single call.
type layerRef struct {
	id  string
	seq uint64
}

func failedSet(res crm.BulkResult) map[string]struct{} {
	out := make(map[string]struct{}, len(res.Errors))
	for _, e := range res.Errors {
		out[e.ID] = struct{}{}
	}
	return out
}
