package gtp

import (
	"strconv"
	"strings"
)

// Command is one parsed protocol request.
type Command struct {
	// ID is the numeric request id, or -1 when the request carried none.
	ID   int
	Name string
	Args []string
}

// HasID reports whether the request carried a numeric id.
func (c Command) HasID() bool { return c.ID >= 0 }

// ParseCommand tokenizes a raw request line. Leading '=' on the first token
// is stripped; if what remains is entirely decimal digits it is the request
// id and the next token is the command name. Every later token is a
// positional argument. A blank line parses to an empty Name, which the
// session loop treats as a no-op.
func ParseCommand(line string) Command {
	cmd := Command{ID: -1}
	for _, tok := range strings.Fields(line) {
		if cmd.Name != "" {
			cmd.Args = append(cmd.Args, tok)
			continue
		}
		tok = strings.TrimPrefix(tok, "=")
		if tok == "" {
			continue
		}
		if id, ok := parseID(tok); ok {
			cmd.ID = id
			continue
		}
		cmd.Name = tok
	}
	return cmd
}

func parseID(tok string) (int, bool) {
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(tok)
	if err != nil {
		// All digits but unrepresentable; treat as a (bogus) command name
		// rather than crashing on hostile input.
		return 0, false
	}
	return id, true
}
