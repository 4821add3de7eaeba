package store

import "context"

// AuthEvent is emitted by a Session when the user logs in or out.
type AuthEvent struct {
	Authenticated bool
	UserID        string
}

// Session supplies the current user and notifies about authentication
// changes. Subscribe returns a function that cancels the subscription.
// Handlers are called without any session lock held.
type Session interface {
	UserID() string
	Subscribe(fn func(ctx context.Context, ev AuthEvent)) (unsubscribe func())
}

// BindSession stamps optimistic entities with sess's user and couples the
// store to its lifecycle: a login refreshes, a logout resets.
func (s *Store[T]) BindSession(sess Session) (unbind func()) {
	s.mu.Lock()
	s.userID = sess.UserID
	s.mu.Unlock()
	return sess.Subscribe(func(ctx context.Context, ev AuthEvent) {
		_ = s.HandleAuth(ctx, ev)
	})
}

// HandleAuth applies an authentication change.
func (s *Store[T]) HandleAuth(ctx context.Context, ev AuthEvent) error {
	if !ev.Authenticated {
		s.Reset()
		s.log.Info(ctx, "session ended, store cleared")
		return nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "refresh after login failed", "error", err)
		return err
	}
	return nil
}
