package models

import "strings"

// CommandType enumerates supported worker command categories.
type CommandType string

const (
	CommandMortality CommandType = "mortality"
	CommandCull      CommandType = "cull"
	CommandFeed      CommandType = "feed"
	CommandStatus    CommandType = "status"
	CommandHelp      CommandType = "help"
	CommandUnknown   CommandType = "unknown"
)

// commandAliases maps the words workers actually type to command types.
var commandAliases = map[string]CommandType{
	"mortality": CommandMortality,
	"mati":      CommandMortality,
	"cull":      CommandCull,
	"afkir":     CommandCull,
	"feed":      CommandFeed,
	"pakan":     CommandFeed,
	"status":    CommandStatus,
	"help":      CommandHelp,
}

// Command represents a parsed worker instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))

	if normalized == "" {
		return Command{Type: CommandUnknown, Raw: message}
	}

	tokens := strings.Fields(normalized)
	cmd := Command{Raw: message, Type: CommandUnknown}

	head := strings.TrimPrefix(tokens[0], "/")
	if t, ok := commandAliases[head]; ok {
		cmd.Type = t
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
