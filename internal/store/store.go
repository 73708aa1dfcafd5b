// Package store holds the in-memory snapshot of an entity collection for the
// running server: the full list in display order, the active search query, the
// derived visible list, and loading/error flags. One Store instance exists per
// entity type. All mutations go through the owning service; readers always see
// either the pre- or post-mutation snapshot.
package store

import (
	"fmt"
	"sync"
)

type ChangeKind string

const (
	ChangeReset    ChangeKind = "reset"
	ChangeUpserted ChangeKind = "upserted"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is emitted to subscribers after the snapshot mutates.
type Change struct {
	Kind ChangeKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

const subscriberBufferSize = 64

// Store is a snapshot store over entities of type T. The id function must
// return a non-empty, unique key per entity. matches implements the search
// filter: case handling is up to the entity package. renumber, if non-nil,
// returns a copy of the entity with its order value set to the given position
// and enables Reorder.
type Store[T any] struct {
	mu       sync.RWMutex
	items    []T
	visible  []T
	query    string
	loading  bool
	err      string
	pending  map[string]bool
	subs     map[int]chan Change
	nextSub  int
	id       func(T) string
	matches  func(T, string) bool
	renumber func(T, int) T
}

func New[T any](id func(T) string, matches func(T, string) bool, renumber func(T, int) T) *Store[T] {
	if id == nil || matches == nil {
		panic("store: id and matches functions are required")
	}
	return &Store[T]{
		pending:  make(map[string]bool),
		subs:     make(map[int]chan Change),
		id:       id,
		matches:  matches,
		renumber: renumber,
	}
}

// SetAll replaces the full collection, clears the error flag and any pending
// entries, and ends the loading state.
func (s *Store[T]) SetAll(items []T) {
	s.mu.Lock()
	s.items = make([]T, len(items))
	copy(s.items, items)
	s.pending = make(map[string]bool)
	s.loading = false
	s.err = ""
	s.refilter()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset})
}

// ApplyQuery stores the query and recomputes the visible list over the current
// collection. The full collection is untouched.
func (s *Store[T]) ApplyQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.refilter()
	s.mu.Unlock()
}

func (s *Store[T]) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

func (s *Store[T]) SetError(message string) {
	s.mu.Lock()
	s.err = message
	s.loading = false
	s.mu.Unlock()
}

func (s *Store[T]) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// UpsertOne inserts the entity if its id is absent (appended at the end) or
// replaces it in place, preserving position. An empty id is a contract
// violation, not a runtime failure.
func (s *Store[T]) UpsertOne(item T) {
	id := s.id(item)
	if id == "" {
		panic("store: upsert with empty id")
	}

	s.mu.Lock()
	s.upsertLocked(id, item)
	s.refilter()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpserted, ID: id})
}

// UpsertPending inserts the entity tagged as tentative. It becomes part of the
// visible collection immediately but is expected to be either promoted or
// rolled back once the repository confirms or rejects it.
func (s *Store[T]) UpsertPending(item T) {
	id := s.id(item)
	if id == "" {
		panic("store: upsert with empty id")
	}

	s.mu.Lock()
	s.upsertLocked(id, item)
	s.pending[id] = true
	s.refilter()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpserted, ID: id})
}

// Promote confirms a tentative entry. Promoting an unknown or already
// confirmed id is a no-op.
func (s *Store[T]) Promote(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// RollbackPending removes an entry only if it is still tentative.
func (s *Store[T]) RollbackPending(id string) {
	s.mu.Lock()
	if !s.pending[id] {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.removeLocked(id)
	s.refilter()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRemoved, ID: id})
}

// IsPending reports whether the entry with the given id is tentative.
func (s *Store[T]) IsPending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[id]
}

// RemoveOne removes the entity by id. Remaining order values are not
// renumbered; order is a sort key, gaps are tolerated.
func (s *Store[T]) RemoveOne(id string) {
	s.mu.Lock()
	removed := s.removeLocked(id)
	delete(s.pending, id)
	s.refilter()
	s.mu.Unlock()

	if removed {
		s.notify(Change{Kind: ChangeRemoved, ID: id})
	}
}

// Reorder moves the element at oldIndex to newIndex over the full collection,
// applying the drag-callback convention that newIndex accounts for the element
// still sitting at oldIndex (if newIndex > oldIndex it is decremented before
// the insert). Order values are renumbered to the dense range 0..n-1 and the
// new full collection is returned for persistence. Reordering is rejected
// while a search query is active, since indices over a filtered view would be
// ambiguous.
func (s *Store[T]) Reorder(oldIndex, newIndex int) ([]T, error) {
	if s.renumber == nil {
		panic("store: Reorder requires a renumber function")
	}

	s.mu.Lock()

	if s.query != "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("reorder is unavailable while a search is active")
	}
	n := len(s.items)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex > n {
		s.mu.Unlock()
		return nil, fmt.Errorf("reorder index out of range: %d -> %d with %d items", oldIndex, newIndex, n)
	}

	if newIndex > oldIndex {
		newIndex--
	}

	moved := s.items[oldIndex]
	s.items = append(s.items[:oldIndex], s.items[oldIndex+1:]...)
	s.items = append(s.items[:newIndex], append([]T{moved}, s.items[newIndex:]...)...)

	for i, item := range s.items {
		s.items[i] = s.renumber(item, i)
	}
	s.refilter()

	out := make([]T, len(s.items))
	copy(out, s.items)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset})
	return out, nil
}

// Items returns a copy of the full collection in display order.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Visible returns a copy of the filtered view for the current query.
func (s *Store[T]) Visible() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.visible))
	copy(out, s.visible)
	return out
}

func (s *Store[T]) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Subscribe registers a change listener. The returned cancel function must be
// called to release it. Slow subscribers lose changes rather than block
// mutations.
func (s *Store[T]) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, subscriberBufferSize)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store[T]) upsertLocked(id string, item T) {
	for i, existing := range s.items {
		if s.id(existing) == id {
			s.items[i] = item
			return
		}
	}
	s.items = append(s.items, item)
}

func (s *Store[T]) removeLocked(id string) bool {
	for i, existing := range s.items {
		if s.id(existing) == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// refilter recomputes the visible list. Matching runs over the whole
// collection on every call; collections are tens to low hundreds of items, so
// no index is kept. The visible list preserves collection order.
func (s *Store[T]) refilter() {
	if s.query == "" {
		s.visible = make([]T, len(s.items))
		copy(s.visible, s.items)
		return
	}
	s.visible = s.visible[:0]
	for _, item := range s.items {
		if s.matches(item, s.query) {
			s.visible = append(s.visible, item)
		}
	}
}

func (s *Store[T]) notify(change Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// Subscriber buffer full, drop the change.
		}
	}
}
