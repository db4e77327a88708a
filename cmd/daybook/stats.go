package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your streak and recent mood",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "number of recent entries to chart")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.insights.Stats(ctx)
	if err != nil {
		return err
	}
	mood, err := a.insights.Sentiment(ctx, statsDays)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	row := func(label, value string) {
		fmt.Fprintln(out, labelStyle.Render(label)+value)
	}

	fmt.Fprintln(out, titleStyle.Render("daybook stats"))
	row("Entries", fmt.Sprint(stats.TotalEntries))
	row("Current streak", fmt.Sprintf("%d days", stats.CurrentStreak))
	row("Longest streak", fmt.Sprintf("%d days", stats.LongestStreak))
	if stats.LastEntryDate != nil {
		row("Last entry", *stats.LastEntryDate)
	}
	if len(stats.Milestones) > 0 {
		row("Milestones", strings.Join(stats.Milestones, ", "))
	}

	if len(mood.Series.Dates) == 0 {
		fmt.Fprintln(out, hintStyle.Render("No entries yet. Run `daybook chat` to write the first one."))
		return nil
	}
	o := mood.Series.Overall
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Last %d entries", len(mood.Series.Dates))))
	row("Happiness", fmt.Sprintf("%.1f", o.Happiness))
	row("Energy", fmt.Sprintf("%.1f", o.Energy))
	row("Calm", fmt.Sprintf("%.1f", o.Calm))
	row("Motivation", fmt.Sprintf("%.1f", o.Motivation))
	row("Wellbeing", fmt.Sprintf("%.1f", o.Wellbeing))
	return nil
}
