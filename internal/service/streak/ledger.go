// Package streak maintains the consecutive-day engagement counter and the
// milestones it unlocks.
package streak

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/store"
)

// Milestone is a one-time achievement unlocked at a streak length.
type Milestone struct {
	Days int    `json:"days"`
	Name string `json:"name"`
}

// Milestones in ascending order of threshold.
var Milestones = []Milestone{
	{Days: 3, Name: "Commitment"},
	{Days: 7, Name: "First Week"},
	{Days: 14, Name: "Two Weeks"},
	{Days: 30, Name: "Month of Mindfulness"},
	{Days: 60, Name: "Two Months"},
	{Days: 100, Name: "Wellness Master"},
}

// Outcome reports what recording today's entry did to the streak.
type Outcome struct {
	StreakContinued bool       `json:"streakContinued"`
	StreakBroken    bool       `json:"streakBroken"`
	AlreadyRecorded bool       `json:"alreadyRecorded"`
	PreviousStreak  *int       `json:"previousStreak,omitempty"`
	CurrentStreak   int        `json:"currentStreak"`
	LongestStreak   int        `json:"longestStreak"`
	TotalEntries    int        `json:"totalEntries"`
	NewMilestone    *Milestone `json:"newMilestone,omitempty"`
}

// ProfileStore is the part of the store the ledger needs.
type ProfileStore interface {
	ReadProfile(ctx context.Context) (journal.Profile, error)
	WriteProfile(ctx context.Context, profile journal.Profile) error
}

// Ledger updates the profile once per calendar day.
type Ledger struct {
	mu     sync.Mutex
	store  ProfileStore
	now    func() time.Time
	loc    *time.Location
	logger *zap.Logger
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger deciding "today" in loc.
func NewLedger(s ProfileStore, loc *time.Location, logger *zap.Logger, opts ...Option) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	l := &Ledger{
		store:  s,
		now:    time.Now,
		loc:    loc,
		logger: logging.OrNop(logger).Named("streak"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current calendar date in the ledger's timezone.
func (l *Ledger) Today() string {
	return journal.DateKey(l.now().In(l.loc))
}

// Profile reads the profile, returning a fresh one if none was saved yet.
func (l *Ledger) Profile(ctx context.Context) (journal.Profile, error) {
	profile, err := l.store.ReadProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return journal.NewProfile(l.now()), nil
	}
	if err != nil {
		return journal.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return profile, nil
}

// RecordEntryForToday counts today's entry. A second call on the same date
// changes nothing.
func (l *Ledger) RecordEntryForToday(ctx context.Context) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	profile, err := l.Profile(ctx)
	if err != nil {
		return Outcome{}, err
	}

	today := l.Today()
	var out Outcome

	if profile.LastEntryDate == nil {
		profile.CurrentStreak = 1
		out.StreakContinued = true
	} else {
		days, err := journal.DaysBetween(*profile.LastEntryDate, today)
		if err != nil {
			// Unreadable date: treat like a gap rather than blocking saves.
			l.logger.Warn("unreadable last entry date", zap.String("lastEntryDate", *profile.LastEntryDate), zap.Error(err))
			days = -1
		}

		switch {
		case days == 0:
			return Outcome{
				AlreadyRecorded: true,
				CurrentStreak:   profile.CurrentStreak,
				LongestStreak:   profile.LongestStreak,
				TotalEntries:    profile.TotalEntries,
			}, nil
		case days == 1:
			profile.CurrentStreak++
			out.StreakContinued = true
		default:
			previous := profile.CurrentStreak
			out.StreakBroken = true
			out.PreviousStreak = &previous
			profile.CurrentStreak = 1
		}
	}

	if m, ok := milestoneAt(profile.CurrentStreak); ok && !profile.HasMilestone(m.Name) {
		profile.MilestonesAchieved = append(profile.MilestonesAchieved, m.Name)
		out.NewMilestone = &m
	}
	if profile.CurrentStreak > profile.LongestStreak {
		profile.LongestStreak = profile.CurrentStreak
	}
	profile.TotalEntries++
	profile.LastEntryDate = &today

	if err := l.store.WriteProfile(ctx, profile); err != nil {
		return Outcome{}, fmt.Errorf("write profile: %w", err)
	}

	out.CurrentStreak = profile.CurrentStreak
	out.LongestStreak = profile.LongestStreak
	out.TotalEntries = profile.TotalEntries

	fields := []zap.Field{
		zap.String("date", today),
		zap.Int("current", out.CurrentStreak),
		zap.Bool("broken", out.StreakBroken),
	}
	if out.NewMilestone != nil {
		fields = append(fields, zap.String("milestone", out.NewMilestone.Name))
	}
	l.logger.Info("entry recorded", fields...)
	return out, nil
}

func milestoneAt(streak int) (Milestone, bool) {
	for _, m := range Milestones {
		if m.Days == streak {
			return m, true
		}
	}
	return Milestone{}, false
}
