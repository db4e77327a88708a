// Package insights answers read-only questions about the journal: stats,
// recent entries, the month calendar and mood charts.
package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/analysis/sentiment"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/store"
)

var ErrInvalidMonth = errors.New("month must be YYYY-MM")

// 日历统计读取的最大条目数
const calendarScanLimit = 366

// Reader is the part of the store insights read from.
type Reader interface {
	ReadProfile(ctx context.Context) (journal.Profile, error)
	ListRecentEntries(ctx context.Context, maxCount int) ([]journal.Entry, error)
}

// Stats summarises the profile.
type Stats struct {
	TotalEntries  int      `json:"totalEntries"`
	CurrentStreak int      `json:"currentStreak"`
	LongestStreak int      `json:"longestStreak"`
	Milestones    []string `json:"milestones"`
	LastEntryDate *string  `json:"lastEntryDate"`
}

// RecentEntry is an entry with its mood reading.
type RecentEntry struct {
	journal.Entry
	Mood *sentiment.Decision `json:"mood,omitempty"`
}

// Calendar lists the days of a month that have an entry. Weeks is a
// Monday-first grid with zeros outside the month.
type Calendar struct {
	Year           int      `json:"year"`
	Month          int      `json:"month"`
	Weeks          [][7]int `json:"weeks"`
	CompletedDates []string `json:"completedDates"`
}

// Sentiment is the chart payload.
type Sentiment struct {
	Series   sentiment.Series `json:"series"`
	Activity []string         `json:"activity"`
}

// Service reads insights from the store.
type Service struct {
	reader Reader
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(reader Reader, logger *zap.Logger) *Service {
	return &Service{
		reader: reader,
		now:    time.Now,
		logger: logging.OrNop(logger).Named("insights"),
	}
}

// Stats returns the engagement numbers. A missing profile reads as zeros.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	profile, err := s.reader.ReadProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		profile = journal.NewProfile(s.now())
	} else if err != nil {
		return Stats{}, fmt.Errorf("read profile: %w", err)
	}

	milestones := profile.MilestonesAchieved
	if milestones == nil {
		milestones = []string{}
	}
	return Stats{
		TotalEntries:  profile.TotalEntries,
		CurrentStreak: profile.CurrentStreak,
		LongestStreak: profile.LongestStreak,
		Milestones:    milestones,
		LastEntryDate: profile.LastEntryDate,
	}, nil
}

// Recent returns up to count entries, most recent first.
func (s *Service) Recent(ctx context.Context, count int) ([]RecentEntry, error) {
	if count <= 0 {
		count = 7
	}
	entries, err := s.reader.ListRecentEntries(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	out := make([]RecentEntry, 0, len(entries))
	for _, entry := range entries {
		item := RecentEntry{Entry: entry}
		if v := entry.Metadata.Emotions; v != nil {
			mood := sentiment.Analyze(*v)
			item.Mood = &mood
		}
		out = append(out, item)
	}
	return out, nil
}

// Calendar returns the grid and completed days for month ("YYYY-MM").
// An empty month means the current one.
func (s *Service) Calendar(ctx context.Context, month string) (Calendar, error) {
	first, err := parseMonth(month, s.now())
	if err != nil {
		return Calendar{}, err
	}

	entries, err := s.reader.ListRecentEntries(ctx, calendarScanLimit)
	if err != nil {
		return Calendar{}, fmt.Errorf("list entries: %w", err)
	}

	prefix := first.Format("2006-01")
	completed := make([]string, 0)
	for _, entry := range entries {
		if len(entry.Date) >= len(prefix) && entry.Date[:len(prefix)] == prefix {
			completed = append(completed, entry.Date)
		}
	}

	return Calendar{
		Year:           first.Year(),
		Month:          int(first.Month()),
		Weeks:          monthGrid(first),
		CompletedDates: completed,
	}, nil
}

// Sentiment returns chart series over the last count entries.
func (s *Service) Sentiment(ctx context.Context, count int) (Sentiment, error) {
	if count <= 0 {
		count = 30
	}
	entries, err := s.reader.ListRecentEntries(ctx, count)
	if err != nil {
		return Sentiment{}, fmt.Errorf("list entries: %w", err)
	}

	activity := make([]string, 0, len(entries))
	for _, entry := range entries {
		activity = append(activity, entry.Date)
	}
	s.logger.Debug("sentiment series built", zap.Int("entries", len(entries)))
	return Sentiment{Series: sentiment.Build(entries), Activity: activity}, nil
}

func parseMonth(month string, now time.Time) (time.Time, error) {
	if month == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return first, nil
}

func monthGrid(first time.Time) [][7]int {
	// 周一为第一列
	offset := (int(first.Weekday()) + 6) % 7
	days := first.AddDate(0, 1, -1).Day()

	var weeks [][7]int
	var week [7]int
	col := offset
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
