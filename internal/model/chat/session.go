package chat

import "time"

// Session is the in-memory state of one conversation. It is never persisted
// as-is; the coordinator derives a Conversation and an Entry from it.
type Session struct {
	Active       bool      `json:"active"`
	History      []Message `json:"history"`
	Instructions string    `json:"instructions"`
	StartedAt    time.Time `json:"startedAt"`
}

// Clone returns a copy whose history can be mutated independently.
func (s Session) Clone() Session {
	out := s
	out.History = append([]Message(nil), s.History...)
	return out
}
