package tui

import "strings"

// Command represents a parsed composer line.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a composer line. Lines starting with '/' are commands;
// anything else, including an empty line, is text to send.
func ParseCommand(input string) Command {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{Name: "send", Args: input}
	}
	parts := strings.SplitN(trimmed[1:], " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}
