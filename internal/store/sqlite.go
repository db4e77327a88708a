package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/daybook/internal/model/chat"
	"github.com/zhouzirui/daybook/internal/model/journal"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profile (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    created_at TEXT NOT NULL,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    total_entries INTEGER NOT NULL DEFAULT 0,
    last_entry_date TEXT,
    milestones TEXT NOT NULL DEFAULT '[]',
    preferences TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS entries (
    date TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    text TEXT NOT NULL,
    source TEXT NOT NULL,
    emotions TEXT,
    message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversations (
    date TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    session_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversation_messages (
    date TEXT NOT NULL,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (date, seq),
    FOREIGN KEY (date) REFERENCES conversations(date) ON DELETE CASCADE
);`

// SQLiteStore keeps records in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path. ":memory:" is
// accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReadProfile(ctx context.Context) (journal.Profile, error) {
	var (
		p                     journal.Profile
		createdAt             string
		lastEntry             sql.NullString
		milestones, prefsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT created_at, current_streak, longest_streak, total_entries, last_entry_date, milestones, preferences
        FROM profile WHERE id = 1`).
		Scan(&createdAt, &p.CurrentStreak, &p.LongestStreak, &p.TotalEntries, &lastEntry, &milestones, &prefsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Profile{}, ErrNotFound
	}
	if err != nil {
		return journal.Profile{}, fmt.Errorf("read profile: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return journal.Profile{}, err
	}
	if lastEntry.Valid {
		p.LastEntryDate = &lastEntry.String
	}
	if err := json.Unmarshal([]byte(milestones), &p.MilestonesAchieved); err != nil {
		return journal.Profile{}, fmt.Errorf("decode milestones: %w", err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &p.Preferences); err != nil {
		return journal.Profile{}, fmt.Errorf("decode preferences: %w", err)
	}
	return normalizeProfile(p), nil
}

func (s *SQLiteStore) WriteProfile(ctx context.Context, profile journal.Profile) error {
	profile = normalizeProfile(profile)
	milestones, err := json.Marshal(profile.MilestonesAchieved)
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(profile.Preferences)
	if err != nil {
		return err
	}

	var lastEntry sql.NullString
	if profile.LastEntryDate != nil {
		lastEntry = sql.NullString{String: *profile.LastEntryDate, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO profile (id, created_at, current_streak, longest_streak, total_entries, last_entry_date, milestones, preferences)
        VALUES (1, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            created_at = excluded.created_at,
            current_streak = excluded.current_streak,
            longest_streak = excluded.longest_streak,
            total_entries = excluded.total_entries,
            last_entry_date = excluded.last_entry_date,
            milestones = excluded.milestones,
            preferences = excluded.preferences`,
		formatTime(profile.CreatedAt), profile.CurrentStreak, profile.LongestStreak, profile.TotalEntries,
		lastEntry, string(milestones), string(prefs))
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadEntry(ctx context.Context, date string) (journal.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT date, timestamp, text, source, emotions, message_count
        FROM entries WHERE date = ?`, date)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLiteStore) WriteEntry(ctx context.Context, date string, entry journal.Entry) error {
	var emotions sql.NullString
	if entry.Metadata.Emotions != nil {
		raw, err := json.Marshal(entry.Metadata.Emotions)
		if err != nil {
			return err
		}
		emotions = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO entries (date, timestamp, text, source, emotions, message_count)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(date) DO UPDATE SET
            timestamp = excluded.timestamp,
            text = excluded.text,
            source = excluded.source,
            emotions = excluded.emotions,
            message_count = excluded.message_count`,
		date, formatTime(entry.Timestamp), entry.Text, string(entry.Metadata.Source), emotions, entry.Metadata.MessageCount)
	if err != nil {
		return fmt.Errorf("write entry %s: %w", date, err)
	}
	return nil
}

func (s *SQLiteStore) ReadConversation(ctx context.Context, date string) (journal.Conversation, error) {
	c := journal.Conversation{Date: date}
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT timestamp, session_count FROM conversations WHERE date = ?`, date).
		Scan(&ts, &c.SessionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Conversation{}, ErrNotFound
	}
	if err != nil {
		return journal.Conversation{}, fmt.Errorf("read conversation %s: %w", date, err)
	}
	if c.Timestamp, err = parseTime(ts); err != nil {
		return journal.Conversation{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT role, content FROM conversation_messages
        WHERE date = ? ORDER BY seq`, date)
	if err != nil {
		return journal.Conversation{}, fmt.Errorf("read messages %s: %w", date, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return journal.Conversation{}, err
		}
		c.Messages = append(c.Messages, chat.Message{Role: chat.Role(role), Content: content})
	}
	return c, rows.Err()
}

func (s *SQLiteStore) WriteConversation(ctx context.Context, date string, conversation journal.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO conversations (date, timestamp, session_count) VALUES (?, ?, ?)
        ON CONFLICT(date) DO UPDATE SET timestamp = excluded.timestamp, session_count = excluded.session_count`,
		date, formatTime(conversation.Timestamp), conversation.SessionCount); err != nil {
		return fmt.Errorf("write conversation %s: %w", date, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_messages WHERE date = ?`, date); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversation_messages (date, seq, role, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, msg := range conversation.Messages {
		if _, err := stmt.ExecContext(ctx, date, i, string(msg.Role), msg.Content); err != nil {
			return fmt.Errorf("write message %d of %s: %w", i, date, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListRecentEntries(ctx context.Context, maxCount int) ([]journal.Entry, error) {
	limit := maxCount
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT date, timestamp, text, source, emotions, message_count
        FROM entries ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (journal.Entry, error) {
	var (
		e        journal.Entry
		ts       string
		source   string
		emotions sql.NullString
	)
	if err := row.Scan(&e.Date, &ts, &e.Text, &source, &emotions, &e.Metadata.MessageCount); err != nil {
		return journal.Entry{}, err
	}

	var err error
	if e.Timestamp, err = parseTime(ts); err != nil {
		return journal.Entry{}, err
	}
	e.Metadata.Source = journal.Source(source)
	if emotions.Valid {
		var v journal.EmotionVector
		if err := json.Unmarshal([]byte(emotions.String), &v); err != nil {
			return journal.Entry{}, fmt.Errorf("decode emotions of %s: %w", e.Date, err)
		}
		e.Metadata.Emotions = &v
	}
	return e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", raw, err)
	}
	return t, nil
}
