package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zhouzirui/daybook/internal/model/journal"
)

const (
	entryPrefix        = "entry_"
	conversationPrefix = "conversation_"
	profileFile        = "user_profile.json"
)

// FileStore keeps one JSON document per record under a data directory:
//
//	<dir>/user_profile.json
//	<dir>/entries/entry_YYYY-MM-DD.json
//	<dir>/conversations/conversation_YYYY-MM-DD.json
type FileStore struct {
	dir string
}

// NewFileStore creates the directory layout if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	for _, sub := range []string{dir, filepath.Join(dir, "entries"), filepath.Join(dir, "conversations")} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", sub, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) ReadProfile(_ context.Context) (journal.Profile, error) {
	var p journal.Profile
	if err := readJSON(filepath.Join(s.dir, profileFile), &p); err != nil {
		return journal.Profile{}, err
	}
	return normalizeProfile(p), nil
}

func (s *FileStore) WriteProfile(_ context.Context, profile journal.Profile) error {
	return writeJSON(filepath.Join(s.dir, profileFile), normalizeProfile(profile))
}

func (s *FileStore) ReadEntry(_ context.Context, date string) (journal.Entry, error) {
	var e journal.Entry
	if err := readJSON(s.entryPath(date), &e); err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}

func (s *FileStore) WriteEntry(_ context.Context, date string, entry journal.Entry) error {
	entry.Date = date
	return writeJSON(s.entryPath(date), entry)
}

func (s *FileStore) ReadConversation(_ context.Context, date string) (journal.Conversation, error) {
	var c journal.Conversation
	if err := readJSON(s.conversationPath(date), &c); err != nil {
		return journal.Conversation{}, err
	}
	return c, nil
}

func (s *FileStore) WriteConversation(_ context.Context, date string, conversation journal.Conversation) error {
	conversation.Date = date
	return writeJSON(s.conversationPath(date), conversation)
}

func (s *FileStore) ListRecentEntries(ctx context.Context, maxCount int) ([]journal.Entry, error) {
	dir := filepath.Join(s.dir, "entries")
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if !f.IsDir() && strings.HasPrefix(name, entryPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if maxCount > 0 && len(names) > maxCount {
		names = names[:maxCount]
	}

	entries := make([]journal.Entry, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e journal.Entry
		if err := readJSON(filepath.Join(dir, name), &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) entryPath(date string) string {
	return filepath.Join(s.dir, "entries", entryPrefix+date+".json")
}

func (s *FileStore) conversationPath(date string) string {
	return filepath.Join(s.dir, "conversations", conversationPrefix+date+".json")
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically through a temp file in the same dir.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp_*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
