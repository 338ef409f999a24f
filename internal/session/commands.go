package session

import (
	"fmt"
	"strings"
)

// commandDesc describes one session command. The numeric aliases keep the
// muscle memory of the original five-option menu working: "2" still
// captures a case, "5" still exits.
type commandDesc struct {
	name  string
	alias string
	args  []string
	help  string
}

func (c commandDesc) syntax() string {
	if len(c.args) > 0 {
		return fmt.Sprintf("%s %s", c.name, strings.Join(c.args, " "))
	}
	return c.name
}

var commands = []commandDesc{
	{"load", "1", []string{"[path]"}, "load fixtures from a file"},
	{"gen", "2", []string{"<path>"}, "capture one case, pending review"},
	{"run", "3", []string{"[path]"}, "compare recorded cases against fresh output"},
	{"save", "4", []string{"[path]"}, "save fixtures and exit"},
	{"exit", "5", nil, "exit without saving"},
	{"gen-all", "", nil, "capture every discovered source file"},
	{"list", "", nil, "show the fixture table"},
	{"approve", "", []string{"<path>"}, "mark a case as reviewed by a human"},
	{"unapprove", "", []string{"<path>"}, "clear the reviewed mark"},
	{"doctor", "", nil, "report orphaned, stale and unreviewed cases"},
	{"help", "", nil, "show this table"},
}

type command struct {
	op   string
	args []string
}

// newCommand parses one input line against the dispatch table. Unknown
// input yields nil; there is no fallthrough to a default action.
func newCommand(line string) *command {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return nil
	}
	head := strings.ToLower(fields[0])
	for _, c := range commands {
		if head == c.name || (c.alias != "" && head == c.alias) {
			return &command{op: c.name, args: fields[1:]}
		}
	}
	return nil
}
