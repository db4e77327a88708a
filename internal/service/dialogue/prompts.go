package dialogue

import (
	"fmt"
	"strings"
)

// coachTemplate describes the standing persona of the journaling coach.
type coachTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

var defaultCoach = coachTemplate{
	SystemPrompt: "You are an empathetic and professional mental wellness coach who helps the user journal their day.",
	PersonalityHints: []string{
		"Help the user reflect on their day through open questions",
		"Be supportive without being intrusive",
		"Ask a follow-up question when the user is vague",
		"Notice important emotions and situations",
		"Never give medical diagnoses",
		"Suggest contacting a professional if you notice signs of crisis",
	},
	ContextRules: []string{
		"Use a warm but professional tone",
		"Keep questions short and focused",
		"Ask no more than 2-3 questions in a row without leaving space",
		"Validate the user's emotions when appropriate",
		"Do not use emoji",
	},
}

func (t coachTemplate) render(userName string) string {
	var b strings.Builder
	b.WriteString(t.SystemPrompt)
	if name := strings.TrimSpace(userName); name != "" {
		fmt.Fprintf(&b, "\nThe user's name is %s.", name)
	}
	b.WriteString("\n\nYour role:\n- ")
	b.WriteString(strings.Join(t.PersonalityHints, "\n- "))
	b.WriteString("\n\nConversation style:\n- ")
	b.WriteString(strings.Join(t.ContextRules, "\n- "))
	return b.String()
}

func greeting(userName string) string {
	if name := strings.TrimSpace(userName); name != "" {
		return fmt.Sprintf("Hi %s! Welcome back!\n\nHow did your day go?", name)
	}
	return "Hi! Welcome back!\n\nHow did your day go?"
}

// closingInstruction replaces a termination token before generation.
func closingInstruction(userTurns int) string {
	sentences := "one sentence"
	switch {
	case userTurns > 4:
		sentences = "2-3 sentences"
	case userTurns > 2:
		sentences = "two sentences"
	}
	return fmt.Sprintf(`The user has finished sharing. Please:
1. Thank them briefly (one line)
2. Summarize the key points in at most %s, strictly proportional to what they actually said
3. Ask for confirmation to save today's journal entry`, sentences)
}

// lengthBand bounds the narrative by how much the user actually wrote.
type lengthBand struct {
	Words     string
	MaxTokens int
}

func bandFor(userTurns int) lengthBand {
	switch {
	case userTurns <= 2:
		return lengthBand{Words: "20-30", MaxTokens: 80}
	case userTurns <= 4:
		return lengthBand{Words: "40-60", MaxTokens: 120}
	case userTurns <= 7:
		return lengthBand{Words: "80-100", MaxTokens: 180}
	default:
		return lengthBand{Words: "120-150", MaxTokens: 250}
	}
}

const transcriberInstructions = "You faithfully transcribe what the user said without adding anything. Be VERY concise and literal."

func narrativePrompt(transcript, existing string, band lengthBand) string {
	var b strings.Builder
	b.WriteString("Here is the conversation:\n\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")

	if strings.TrimSpace(existing) != "" {
		fmt.Fprintf(&b, `You already wrote this journal entry today:

%q

Write ONLY the new sentences to append to it, based on the conversation that just ended.

CRITICAL RULES:
- Do not repeat, rewrite or shorten the existing entry
- Add ONLY information that is new in this conversation
- Write in first person ("I", "I felt")
- Target length for the new part: %s words (MAXIMUM)
- Use ONLY information the user stated EXPLICITLY
- Do NOT invent details or emotions that were not said
- Style: simple, direct, chronological

New sentences:`, existing, band.Words)
		return b.String()
	}

	fmt.Fprintf(&b, `Based ONLY on this conversation, write a first-person journal entry.

CRITICAL RULES:
- Write from the user's point of view ("I", "I felt")
- Target length: %s words (MAXIMUM)
- Use ONLY information the user stated EXPLICITLY
- Do NOT invent details, emotions or reflections that were not said
- If the user wrote little, the entry MUST be very short
- Style: simple, direct, faithful to the user's words

Entry:`, band.Words)
	return b.String()
}
