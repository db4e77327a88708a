// Package briefing turns recent journal entries into the short background
// block injected into the coach's instructions at session start.
package briefing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/ai"
)

const (
	abstractTemperature = 0.3
	abstractMaxTokens   = 50
	abstractInputLimit  = 300
	defaultParallelism  = 3
)

const abstractInstructions = "Summarize this journal entry in ONE sentence (max 15 words). Focus on the main topic or feeling."

// Assembler builds the context addendum.
type Assembler struct {
	gen         ai.Generator
	now         func() time.Time
	parallelism int
	logger      *zap.Logger
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithClock overrides the clock used for relative day labels.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithParallelism bounds concurrent abstraction calls.
func WithParallelism(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.parallelism = n
		}
	}
}

// NewAssembler creates an Assembler. gen may be nil; every line then uses
// the naive excerpt.
func NewAssembler(gen ai.Generator, logger *zap.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		gen:         gen,
		now:         time.Now,
		parallelism: defaultParallelism,
		logger:      logging.OrNop(logger).Named("briefing"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildContext returns the background block for at most horizon of the most
// recent entries, oldest first. It returns "" when there is nothing to say.
func (a *Assembler) BuildContext(ctx context.Context, entries []journal.Entry, horizon int) string {
	if len(entries) == 0 {
		return ""
	}

	sorted := append([]journal.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	if horizon > 0 && len(sorted) > horizon {
		sorted = sorted[len(sorted)-horizon:]
	}

	today := journal.DateKey(a.now())
	lines := make([]string, len(sorted))

	var g errgroup.Group
	g.SetLimit(a.parallelism)
	for i, entry := range sorted {
		g.Go(func() error {
			lines[i] = fmt.Sprintf("- %s: %s", dayLabel(entry.Date, today), a.abstract(ctx, entry))
			return nil
		})
	}
	_ = g.Wait()

	var b strings.Builder
	b.WriteString("\n=== USER BACKGROUND ===\n")
	b.WriteString("Recent context from user's journal:\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nUse this background to provide more personalized, contextual responses.\n")
	b.WriteString("Reference past entries when relevant, but don't over-do it.\n")
	b.WriteString("===\n")

	a.logger.Debug("context assembled", zap.Int("entries", len(sorted)))
	return b.String()
}

// dayLabel renders Today / Yesterday / N days ago, or the raw date when it
// cannot be parsed.
func dayLabel(date, today string) string {
	days, err := journal.DaysBetween(date, today)
	if err != nil || days < 0 {
		return date
	}
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func (a *Assembler) abstract(ctx context.Context, entry journal.Entry) string {
	emotions := entry.Metadata.Emotions
	if a.gen == nil {
		return excerpt(entry.Text, emotions)
	}

	input := fmt.Sprintf("Entry: %q\n", truncate(entry.Text, abstractInputLimit))
	if emotions != nil {
		input += fmt.Sprintf("Emotions detected: stress %s, happiness %s\n",
			formatScore(emotions.Stress), formatScore(emotions.Happiness))
	}
	input += "\nSummary:"

	summary, err := a.gen.Generate(ctx, ai.Request{
		Instructions: abstractInstructions,
		Input:        input,
		Temperature:  abstractTemperature,
		MaxTokens:    abstractMaxTokens,
	})
	if err != nil {
		a.logger.Warn("entry abstraction failed, using excerpt",
			zap.String("date", entry.Date), zap.Error(err))
		return excerpt(entry.Text, emotions)
	}

	summary = strings.TrimSpace(summary)
	if emotions != nil {
		summary += displayScores(*emotions)
	}
	return summary
}

// excerpt is the deterministic line used when no generator is configured.
func excerpt(text string, emotions *journal.EmotionVector) string {
	first := leadingSentences(text, 1)
	if emotions == nil {
		return truncate(first, 150)
	}
	return fmt.Sprintf("%s (Stress: %s, Happy: %s)",
		truncate(first, 100), formatScore(emotions.Stress), formatScore(emotions.Happiness))
}

func displayScores(v journal.EmotionVector) string {
	var parts []string
	if v.Stress > 0 {
		parts = append(parts, "Stress: "+formatScore(v.Stress)+"/10")
	}
	if v.Happiness > 0 {
		parts = append(parts, "Happy: "+formatScore(v.Happiness)+"/10")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func leadingSentences(text string, n int) string {
	sentences := strings.Split(strings.TrimSpace(text), ".")
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return strings.Join(sentences, ". ") + "."
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func formatScore(v float64) string {
	return strconv.FormatFloat(journal.ClampScore(v), 'f', -1, 64)
}
