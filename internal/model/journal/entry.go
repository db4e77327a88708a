package journal

import (
	"strings"
	"time"
)

// Source records which surface produced an entry.
type Source string

const (
	SourceChat   Source = "chat"
	SourceEditor Source = "editor"
)

// EntryMetadata accompanies a narrative entry.
type EntryMetadata struct {
	Source       Source         `json:"source"`
	Emotions     *EmotionVector `json:"emotions_detected,omitempty"`
	MessageCount int            `json:"message_count,omitempty"`
}

// Entry is the single narrative summary of a day. At most one exists per
// date; later saves on the same date overwrite it with merged text.
type Entry struct {
	Date      string        `json:"date"`
	Timestamp time.Time     `json:"timestamp"`
	Text      string        `json:"entry"`
	Metadata  EntryMetadata `json:"metadata"`
}

// MergeNarrative combines the stored narrative of a day with new text. The
// existing narrative is always kept as a prefix of the result; an addition
// that already starts with it is taken as the full merged text.
func MergeNarrative(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	switch {
	case existing == "":
		return addition
	case addition == "":
		return existing
	case strings.HasPrefix(addition, existing):
		return addition
	default:
		return existing + "\n\n" + addition
	}
}
