package session

import (
	"os"
	"path/filepath"

	"github.com/peterh/liner"
)

// Prompter abstracts line input so tests can script a session. The real
// implementation wraps peterh/liner with history and completion.
type Prompter interface {
	Prompt(text string) (string, error)
	AppendHistory(item string)
	Close() error
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".touchstone_history")
}

type linerPrompter struct {
	state   *liner.State
	history string
}

func newLinerPrompter(complete liner.Completer, history string) *linerPrompter {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	if complete != nil {
		st.SetCompleter(complete)
	}
	p := &linerPrompter{state: st, history: history}
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = st.ReadHistory(f)
			f.Close()
		}
	}
	return p
}

func (p *linerPrompter) Prompt(text string) (string, error) {
	return p.state.Prompt(text)
}

func (p *linerPrompter) AppendHistory(item string) {
	p.state.AppendHistory(item)
}

func (p *linerPrompter) Close() error {
	if p.history != "" {
		if f, err := os.Create(p.history); err == nil {
			_, _ = p.state.WriteHistory(f)
			f.Close()
		}
	}
	return p.state.Close()
}
