package store

import "slices"

// Select marks id for bulk operations. Only ids visible in the cache can be
// selected; the result reports whether id is now selected.
func (s *Store[T]) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.valueLocked(id); !ok {
		return false
	}
	s.selection[id] = struct{}{}
	return true
}

func (s *Store[T]) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, id)
}

// Toggle flips the selection of id and returns the new state.
func (s *Store[T]) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selection[id]; ok {
		delete(s.selection, id)
		return false
	}
	if _, ok := s.valueLocked(id); !ok {
		return false
	}
	s.selection[id] = struct{}{}
	return true
}

// SelectAllVisible adds every id of the current view and returns how many
// ids were newly selected.
func (s *Store[T]) SelectAllVisible() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return 0
	}
	n := 0
	for _, id := range s.view.ids {
		if _, ok := s.valueLocked(id); !ok {
			continue
		}
		if _, already := s.selection[id]; !already {
			s.selection[id] = struct{}{}
			n++
		}
	}
	return n
}

func (s *Store[T]) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = map[string]struct{}{}
}

// Selected returns the selected ids in sorted order.
func (s *Store[T]) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.selection))
	for id := range s.selection {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *Store[T]) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selection[id]
	return ok
}
