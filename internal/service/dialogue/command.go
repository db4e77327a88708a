package dialogue

import "strings"

// Command is the closed set of control words a user can type.
type Command int

const (
	// CommandNone means the message is ordinary journaling content.
	CommandNone Command = iota
	// CommandEnd asks to close and save the session.
	CommandEnd
)

var commandTokens = map[string]Command{
	"end":           CommandEnd,
	"stop":          CommandEnd,
	"that's all":    CommandEnd,
	"thats all":     CommandEnd,
	"that's enough": CommandEnd,
	"enough":        CommandEnd,
	"basta":         CommandEnd,
	"termina":       CommandEnd,
}

// ParseCommand matches message exactly against the command tokens, ignoring
// case and surrounding or repeated whitespace.
func ParseCommand(message string) Command {
	return commandTokens[normalize(message)]
}

// IsTermination reports whether message ends the session. The engine and the
// coordinator both call this, so the two decisions cannot diverge.
func IsTermination(message string) bool {
	return ParseCommand(message) == CommandEnd
}

func normalize(message string) string {
	lowered := strings.ToLower(strings.ReplaceAll(message, "’", "'"))
	return strings.Join(strings.Fields(lowered), " ")
}
