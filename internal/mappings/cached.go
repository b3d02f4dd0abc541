package mappings

import (
	"context"
	"strings"
	"sync"

	"github.com/guildsync/guildsync/internal/cache"
)

// CachedStore memoizes GetMappings per guild and invalidates on edits. A load
// that overlaps an edit of the same guild is returned but not cached.
type CachedStore struct {
	next  Store
	cache cache.Cache[Mapping]

	mu  sync.Mutex
	gen map[string]uint64
}

// NewCachedStore wraps next with c.
func NewCachedStore(next Store, c cache.Cache[Mapping]) *CachedStore {
	return &CachedStore{next: next, cache: c, gen: map[string]uint64{}}
}

func (s *CachedStore) GetMappings(ctx context.Context, guildID string) (Mapping, error) {
	guildID = strings.TrimSpace(guildID)
	if s.cache == nil {
		return s.next.GetMappings(ctx, guildID)
	}
	if m, ok := s.cache.Get(guildID); ok {
		return m, nil
	}

	s.mu.Lock()
	gen := s.gen[guildID]
	s.mu.Unlock()

	m, err := s.next.GetMappings(ctx, guildID)
	if err != nil {
		return m, err
	}

	s.mu.Lock()
	if s.gen[guildID] == gen {
		s.cache.Set(guildID, m)
	}
	s.mu.Unlock()
	return m, nil
}

func (s *CachedStore) PutEntry(ctx context.Context, guildID, roleID string, entry Entry) error {
	defer s.invalidate(guildID)
	return s.next.PutEntry(ctx, guildID, roleID, entry)
}

func (s *CachedStore) DeleteEntry(ctx context.Context, guildID, roleID string) error {
	defer s.invalidate(guildID)
	return s.next.DeleteEntry(ctx, guildID, roleID)
}

func (s *CachedStore) invalidate(guildID string) {
	guildID = strings.TrimSpace(guildID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[guildID]++
	if s.cache != nil {
		s.cache.Delete(guildID)
	}
}
