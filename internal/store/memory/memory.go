// Package memory provides an in-memory store used by tests and the local
// chat command, where a database is more than needed.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/finclaw/internal/store"
	"github.com/user/finclaw/internal/types"
)

// Store keeps conversations and credentials in process memory. Safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	messages map[types.ThreadID][]*types.Message
	threads  map[types.ThreadID]*types.Thread
	tokens   map[string]*types.OAuthToken
	now      func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		messages: make(map[types.ThreadID][]*types.Message),
		threads:  make(map[types.ThreadID]*types.Thread),
		tokens:   make(map[string]*types.OAuthToken),
		now:      time.Now,
	}
}

func (s *Store) CreateMessage(ctx context.Context, msg *types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.messages[cp.ThreadID] = append(s.messages[cp.ThreadID], &cp)
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, owner types.OwnerID, thread types.ThreadID, limit int) ([]*types.Message, error) {
	all, err := s.ListMessages(ctx, owner, thread)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) ListMessages(ctx context.Context, owner types.OwnerID, thread types.ThreadID) ([]*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Message
	for _, msg := range s.messages[thread] {
		if msg.OwnerID != owner {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) CreateThread(ctx context.Context, thread *types.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *thread
	if cp.ID == "" {
		cp.ID = types.NewThreadID()
	}
	if cp.Title == "" {
		cp.Title = types.DefaultThreadTitle
	}
	if cp.Context == "" {
		cp.Context = types.ContextAll
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	if cp.LastMessageAt.IsZero() {
		cp.LastMessageAt = cp.CreatedAt
	}
	s.threads[cp.ID] = &cp
	*thread = cp
	return nil
}

func (s *Store) GetThread(ctx context.Context, owner types.OwnerID, id types.ThreadID) (*types.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getThreadLocked(owner, id)
}

func (s *Store) getThreadLocked(owner types.OwnerID, id types.ThreadID) (*types.Thread, error) {
	t, ok := s.threads[id]
	if !ok || t.OwnerID != owner {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ResolveThread(ctx context.Context, owner types.OwnerID) (*types.Thread, error) {
	threads, err := s.ListThreads(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(threads) > 0 {
		return threads[0], nil
	}

	t := &types.Thread{OwnerID: owner}
	if err := s.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ListThreads(ctx context.Context, owner types.OwnerID) ([]*types.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Thread
	for _, t := range s.threads {
		if t.OwnerID != owner {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (s *Store) DeleteThread(ctx context.Context, owner types.OwnerID, id types.ThreadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getThreadLocked(owner, id); err != nil {
		return err
	}
	delete(s.threads, id)
	delete(s.messages, id)
	return nil
}

func (s *Store) SetThreadTitle(ctx context.Context, owner types.OwnerID, id types.ThreadID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getThreadLocked(owner, id); err != nil {
		return err
	}
	s.threads[id].Title = title
	return nil
}

func (s *Store) SetThreadContext(ctx context.Context, owner types.OwnerID, id types.ThreadID, filter types.ContextFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getThreadLocked(owner, id); err != nil {
		return err
	}
	s.threads[id].Context = filter
	return nil
}

func (s *Store) TouchThread(ctx context.Context, owner types.OwnerID, id types.ThreadID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getThreadLocked(owner, id); err != nil {
		return err
	}
	if at.After(s.threads[id].LastMessageAt) {
		s.threads[id].LastMessageAt = at
	}
	return nil
}

func tokenKey(owner types.OwnerID, provider string) string {
	return string(owner) + "|" + provider
}

func (s *Store) Token(ctx context.Context, owner types.OwnerID, provider string) (*types.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenKey(owner, provider)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) SaveToken(ctx context.Context, token *types.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[tokenKey(cp.OwnerID, cp.Provider)] = &cp
	return nil
}

func (s *Store) Connected(ctx context.Context, owner types.OwnerID, provider string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[tokenKey(owner, provider)]
	return ok, nil
}
