package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/daybook/internal/analysis/sentiment"
	"github.com/zhouzirui/daybook/internal/service/session"
)

var chatName string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk about your day in the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatName, "name", "", "name the coach uses to greet you")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	start := a.coordinator.StartSession(ctx, chatName)
	fmt.Fprintln(out, titleStyle.Render("daybook"))
	if start.Degraded {
		fmt.Fprintln(out, hintStyle.Render("(past entries could not be loaded)"))
	}
	fmt.Fprintln(out, coachStyle.Render(start.Greeting))
	fmt.Fprintln(out, hintStyle.Render(`Type "stop" when you are done. Ctrl+C leaves without saving.`))

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	for {
		fmt.Fprint(out, youStyle.Render("you › "))

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			_ = a.coordinator.ForceEnd(start.SessionID)
			fmt.Fprintln(out, "\n"+hintStyle.Render("Left without saving."))
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			_ = a.coordinator.ForceEnd(start.SessionID)
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		result, err := a.coordinator.HandleMessage(ctx, start.SessionID, line)
		if err != nil {
			return err
		}
		if done := printTurn(out, result); done {
			return nil
		}
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func printTurn(out io.Writer, result session.TurnResult) bool {
	if result.CrisisDetected {
		fmt.Fprintln(out, alertStyle.Render(result.Reply))
		return true
	}
	if result.Reply != "" {
		fmt.Fprintln(out, coachStyle.Render(result.Reply))
	}
	if result.Emotions != nil && !result.EmotionsDegraded {
		mood := sentiment.Analyze(*result.Emotions)
		fmt.Fprintln(out, hintStyle.Render("mood: "+string(mood.Mood)))
	}
	if !result.ShouldEnd {
		return false
	}

	closing := result.Closing
	switch {
	case closing == nil:
	case closing.Saved:
		fmt.Fprintln(out, entryStyle.Render(closing.Narrative))
		if s := closing.Streak; s != nil {
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("🔥 %d day streak", s.CurrentStreak)))
			if s.NewMilestone != nil {
				fmt.Fprintln(out, titleStyle.Render("🏆 "+s.NewMilestone.Name))
			}
		}
	case !result.Success:
		fmt.Fprintln(out, alertStyle.Render("The entry could not be saved: "+result.Error))
	default:
		fmt.Fprintln(out, hintStyle.Render("Nothing to save today."))
	}
	return true
}
