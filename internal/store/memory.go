package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/model/journal"
)

// MemoryStore implements Store in memory. Useful for tests and dry runs.
type MemoryStore struct {
	mu            sync.RWMutex
	profile       *journal.Profile
	entries       map[string]journal.Entry
	conversations map[string]journal.Conversation
	writes        int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]journal.Entry),
		conversations: make(map[string]journal.Conversation),
	}
}

func (s *MemoryStore) ReadProfile(_ context.Context) (journal.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return journal.Profile{}, ErrNotFound
	}
	return cloneProfile(*s.profile), nil
}

func (s *MemoryStore) WriteProfile(_ context.Context, profile journal.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := normalizeProfile(cloneProfile(profile))
	s.profile = &p
	s.writes++
	return nil
}

func (s *MemoryStore) ReadEntry(_ context.Context, date string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[date]
	if !ok {
		return journal.Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) WriteEntry(_ context.Context, date string, entry journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Date = date
	if entry.Metadata.Emotions != nil {
		v := *entry.Metadata.Emotions
		entry.Metadata.Emotions = &v
	}
	s.entries[date] = entry
	s.writes++
	return nil
}

func (s *MemoryStore) ReadConversation(_ context.Context, date string) (journal.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[date]
	if !ok {
		return journal.Conversation{}, ErrNotFound
	}
	c.Messages = append([]chat.Message(nil), c.Messages...)
	return c, nil
}

func (s *MemoryStore) WriteConversation(_ context.Context, date string, conversation journal.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation.Date = date
	conversation.Messages = append([]chat.Message(nil), conversation.Messages...)
	s.conversations[date] = conversation
	s.writes++
	return nil
}

func (s *MemoryStore) ListRecentEntries(_ context.Context, maxCount int) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.entries))
	for date := range s.entries {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if maxCount > 0 && len(dates) > maxCount {
		dates = dates[:maxCount]
	}

	out := make([]journal.Entry, 0, len(dates))
	for _, date := range dates {
		out = append(out, s.entries[date])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// Writes counts successful write calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func cloneProfile(p journal.Profile) journal.Profile {
	p.MilestonesAchieved = slices.Clone(p.MilestonesAchieved)
	if p.LastEntryDate != nil {
		d := *p.LastEntryDate
		p.LastEntryDate = &d
	}
	return p
}
