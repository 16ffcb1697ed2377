package selection

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kursadbilgin/number-console/internal/domain"
)

// Store holds the selected number ids of one console session, scoped to the
// snapshot that is currently loaded. Every selected id exists in the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot domain.Snapshot
	index    map[string]struct{}
	selected map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		index:    make(map[string]struct{}),
		selected: make(map[string]struct{}),
	}
}

// ReplaceSnapshot installs a freshly loaded page and clears the selection.
func (s *Store) ReplaceSnapshot(snapshot domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = append(domain.Snapshot(nil), snapshot...)
	s.index = make(map[string]struct{}, len(snapshot))
	for i := range snapshot {
		s.index[snapshot[i].ID] = struct{}{}
	}
	s.selected = make(map[string]struct{})
}

// Snapshot returns a copy of the currently loaded page.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append(domain.Snapshot(nil), s.snapshot...)
}

func (s *Store) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: number id is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: number %q is not in the loaded page", domain.ErrValidation, id)
	}
	s.selected[id] = struct{}{}
	return nil
}

// AddAll selects every id or, when any id is blank or unknown, none of them.
func (s *Store) AddAll(ids []string) error {
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%w: number id is required", domain.ErrValidation)
		}
		normalized = append(normalized, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range normalized {
		if _, ok := s.index[id]; !ok {
			return fmt.Errorf("%w: number %q is not in the loaded page", domain.ErrValidation, id)
		}
	}
	for _, id := range normalized {
		s.selected[id] = struct{}{}
	}
	return nil
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.selected, strings.TrimSpace(id))
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[string]struct{})
}

// SelectAll replaces the selection with exactly the ids of snapshot that are
// also part of the loaded page. An empty snapshot yields an empty selection.
func (s *Store) SelectAll(snapshot domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[string]struct{}, len(snapshot))
	for i := range snapshot {
		if _, ok := s.index[snapshot[i].ID]; ok {
			s.selected[snapshot[i].ID] = struct{}{}
		}
	}
}

func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.selected[id]
	return ok
}

// Current returns the selected ids in snapshot order.
func (s *Store) Current() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.selected))
	for i := range s.snapshot {
		if _, ok := s.selected[s.snapshot[i].ID]; ok {
			ids = append(ids, s.snapshot[i].ID)
		}
	}
	return ids
}

// Set returns the selection as a set, suitable for eligibility filtering.
func (s *Store) Set() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.copySetLocked()
}

// Selection returns the selected ids together with the snapshot they were
// selected from, read under one lock.
func (s *Store) Selection() (map[string]struct{}, domain.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.copySetLocked(), append(domain.Snapshot(nil), s.snapshot...)
}

func (s *Store) copySetLocked() map[string]struct{} {
	set := make(map[string]struct{}, len(s.selected))
	for id := range s.selected {
		set[id] = struct{}{}
	}
	return set
}
