package journal

import (
	"time"

	"github.com/zhouzirui/daybook/internal/model/chat"
)

// Conversation is the raw message history of a date, accumulated across
// every session saved on that date.
type Conversation struct {
	Date         string         `json:"date"`
	Timestamp    time.Time      `json:"timestamp"`
	Messages     []chat.Message `json:"messages"`
	SessionCount int            `json:"session_count"`
}

// Append adds one session's messages without discarding earlier ones and
// counts the session.
func (c Conversation) Append(messages []chat.Message, at time.Time) Conversation {
	out := c
	out.Messages = make([]chat.Message, 0, len(c.Messages)+len(messages))
	out.Messages = append(out.Messages, c.Messages...)
	out.Messages = append(out.Messages, messages...)
	out.SessionCount = c.SessionCount + 1
	out.Timestamp = at
	return out
}
