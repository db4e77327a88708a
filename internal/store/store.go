// Package store persists the profile, daily entries and daily conversations
// keyed by ISO calendar date.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/model/journal"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract of the pipeline. Writes overwrite; the
// caller merges conversations and narratives before writing.
type Store interface {
	ReadProfile(ctx context.Context) (journal.Profile, error)
	WriteProfile(ctx context.Context, profile journal.Profile) error

	ReadEntry(ctx context.Context, date string) (journal.Entry, error)
	WriteEntry(ctx context.Context, date string, entry journal.Entry) error

	ReadConversation(ctx context.Context, date string) (journal.Conversation, error)
	WriteConversation(ctx context.Context, date string, conversation journal.Conversation) error

	// ListRecentEntries returns up to maxCount entries, most recent date
	// first. maxCount <= 0 returns every entry.
	ListRecentEntries(ctx context.Context, maxCount int) ([]journal.Entry, error)

	Close() error
}

// Open creates the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreFile, "":
		return NewFileStore(cfg.DataDir)
	case config.StoreSQLite:
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "daybook.db"))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// DateLocks serializes writers of the same date-keyed records.
type DateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	mu   sync.Mutex
	refs int
}

// NewDateLocks returns an empty lock set.
func NewDateLocks() *DateLocks {
	return &DateLocks{locks: make(map[string]*dateLock)}
}

// Lock acquires the lock for date and returns its release function.
func (d *DateLocks) Lock(date string) func() {
	d.mu.Lock()
	l, ok := d.locks[date]
	if !ok {
		l = &dateLock{}
		d.locks[date] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, date)
		}
		d.mu.Unlock()
	}
}

func normalizeProfile(p journal.Profile) journal.Profile {
	if p.MilestonesAchieved == nil {
		p.MilestonesAchieved = []string{}
	}
	return p
}
