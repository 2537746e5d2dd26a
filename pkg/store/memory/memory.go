// Package memory provides an in-memory Store for tests and
// single-process use. Turns are lost when the process exits. Optional
// LRU eviction bounds memory usage; thread heads survive eviction so a
// thread keeps its position even after its older turns age out.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anfrage-dev/anfrage/pkg/store"
)

// entry holds a stored turn and its position in the LRU list.
type entry struct {
	turn    *store.Turn
	lruElem *list.Element
}

// Store is an in-memory conversation store with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	turns   map[string]*entry // keyed by response id
	heads   map[string]string // thread id -> head response id
	lruList *list.List        // front = most recently used
	maxSize int               // 0 = unlimited
}

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// New creates an in-memory store. maxSize bounds the number of turns
// kept; 0 means unlimited.
func New(maxSize int) *Store {
	return &Store{
		turns:   make(map[string]*entry),
		heads:   make(map[string]string),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SaveTurn records a turn and advances the thread head.
func (s *Store) SaveTurn(ctx context.Context, turn *store.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.turns[turn.ResponseID]; exists {
		return store.ErrConflict
	}

	// Evict if at capacity.
	if s.maxSize > 0 && len(s.turns) >= s.maxSize {
		s.evictOldest()
	}

	saved := *turn
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}

	elem := s.lruList.PushFront(saved.ResponseID)
	s.turns[saved.ResponseID] = &entry{turn: &saved, lruElem: elem}
	s.heads[saved.ThreadID] = saved.ResponseID

	return nil
}

// Turn retrieves a stored turn by response id. A hit promotes the turn
// so history walks keep active threads warm.
func (s *Store) Turn(ctx context.Context, responseID string) (*store.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.turns[responseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.lruList.MoveToFront(e.lruElem)

	return e.turn, nil
}

// Head returns the most recent response id of a thread.
func (s *Store) Head(ctx context.Context, threadID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head, ok := s.heads[threadID]
	if !ok {
		return "", store.ErrNotFound
	}
	return head, nil
}

// SetHead points a thread at an already stored response id.
func (s *Store) SetHead(ctx context.Context, threadID, responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[responseID]; !ok {
		return store.ErrNotFound
	}
	s.heads[threadID] = responseID
	return nil
}

// Threads lists known thread ids in lexical order.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.heads))
	for id := range s.heads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteThread removes a thread head and every turn recorded for it.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.heads[threadID]; !ok {
		return store.ErrNotFound
	}
	delete(s.heads, threadID)

	for id, e := range s.turns {
		if e.turn.ThreadID == threadID {
			s.lruList.Remove(e.lruElem)
			delete(s.turns, id)
		}
	}
	return nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used turn. Thread heads are
// left in place; a head whose turn was evicted resolves again through
// the API. Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.turns, id)
}
