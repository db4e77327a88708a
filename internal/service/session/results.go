package session

import (
	"time"

	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/streak"
)

// StartResult is returned by StartSession. Degraded means the session runs
// without the background context.
type StartResult struct {
	SessionID     string `json:"sessionId"`
	Success       bool   `json:"success"`
	Greeting      string `json:"greeting"`
	Degraded      bool   `json:"degraded"`
	ContextLoaded bool   `json:"contextLoaded"`
}

// TurnResult is returned by HandleMessage.
type TurnResult struct {
	Success          bool                   `json:"success"`
	Reply            string                 `json:"reply"`
	CrisisDetected   bool                   `json:"crisisDetected"`
	ShouldEnd        bool                   `json:"shouldEnd"`
	Emotions         *journal.EmotionVector `json:"emotions,omitempty"`
	EmotionsDegraded bool                   `json:"emotionsDegraded,omitempty"`
	Closing          *Closing               `json:"closing,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// Closing describes what the termination sequence produced.
type Closing struct {
	Date      string                 `json:"date"`
	Saved     bool                   `json:"saved"`
	Narrative string                 `json:"narrative,omitempty"`
	Emotions  *journal.EmotionVector `json:"emotions,omitempty"`
	Streak    *streak.Outcome        `json:"streak,omitempty"`
}

// EditorResult is returned by SaveEditorEntry.
type EditorResult struct {
	Date   string         `json:"date"`
	Entry  journal.Entry  `json:"entry"`
	Streak streak.Outcome `json:"streak"`
}

// Status is a read-only view of a session.
type Status struct {
	SessionID          string    `json:"sessionId"`
	Active             bool      `json:"active"`
	State              string    `json:"state"`
	UserName           string    `json:"userName,omitempty"`
	UserMessages       int       `json:"userMessages"`
	ConversationLength int       `json:"conversationLength"`
	StartedAt          time.Time `json:"startedAt"`
}
