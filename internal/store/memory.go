package store

import (
	"context"
	"sync"

	"github.com/guildtrack/guildtrack/internal/models"
)

type memberKey struct {
	userID  int64
	guildID int64
}

// MemoryStore is a mutex-guarded in-memory store used for unit tests and
// deployments without MongoDB. The mutex held for the duration of InTx is
// what serializes concurrent writers to the same key.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[memberKey]*models.Member
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[memberKey]*models.Member)}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &memoryTx{store: s})
}

func (s *MemoryStore) Get(ctx context.Context, userID, guildID int64) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberKey{userID, guildID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Member, 0, len(s.members))
	for _, m := range s.members {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// memoryTx operates on the store while the InTx mutex is held.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) TryUpdate(ctx context.Context, userID, guildID int64, patch models.MemberPatch) (bool, error) {
	m, ok := t.store.members[memberKey{userID, guildID}]
	if !ok {
		return false, nil
	}
	if patch.Username != nil {
		m.Username = *patch.Username
	}
	if patch.Discriminator != nil {
		m.Discriminator = *patch.Discriminator
	}
	if patch.Nick != nil {
		m.Nick = *patch.Nick
	}
	m.LastSeen = patch.LastSeen
	return true, nil
}

func (t *memoryTx) Create(ctx context.Context, m *models.Member) error {
	key := memberKey{m.UserID, m.GuildID}
	if _, ok := t.store.members[key]; ok {
		return ErrDuplicateKey
	}
	cp := *m
	t.store.members[key] = &cp
	return nil
}
