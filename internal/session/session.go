package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/alanlang/touchstone/internal/config"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/manifest"
	"github.com/alanlang/touchstone/internal/stage"
	"github.com/alanlang/touchstone/internal/toolchain"
	"github.com/alanlang/touchstone/internal/ui"
)

// Session is the interactive fixture loop. All state is explicit: the
// store, the builder cache and the test counter live here and die with
// the session.
type Session struct {
	Config    config.Config
	Manifest  manifest.Manifest
	Store     *fixture.Store
	Builder   *toolchain.Builder
	Invoker   *toolchain.Invoker
	Logger    *logrus.Logger
	Out       io.Writer
	Normalize stage.Normalizer
	ID        string

	prompter Prompter
	testNr   int
}

// New assembles a session over the configured project.
func New(cfg config.Config, m manifest.Manifest, logger *logrus.Logger, out io.Writer) *Session {
	return &Session{
		Config:   cfg,
		Manifest: m,
		Store:    fixture.NewStore(),
		Builder:  toolchain.NewBuilder(cfg.Build.Program, cfg.SrcPath(), logger),
		Invoker: &toolchain.Invoker{
			BinDir:          cfg.BinPath(),
			TimeoutMs:       cfg.Run.TimeoutMs,
			CaptureMaxBytes: cfg.Run.CaptureMaxBytes,
		},
		Logger:    logger,
		Out:       out,
		Normalize: stage.NewNormalizer(cfg.Normalize.Inline),
		ID:        uuid.NewString(),
	}
}

// errAborted marks Ctrl-C at a nested prompt: abandon the operation,
// return to the menu.
var errAborted = errors.New("aborted")

// Loop runs the menu until save, exit or interrupt at the main prompt.
func (s *Session) Loop() error {
	if s.prompter == nil {
		s.prompter = newLinerPrompter(s.complete, historyPath())
	}
	defer func() { _ = s.prompter.Close() }()

	fmt.Fprintln(s.Out, ui.HeadingStyle.Render("touchstone"), ui.MutedStyle.Render("golden fixture session "+s.ID))
	s.printMenu()

	for {
		input, err := s.prompter.Prompt(ui.PromptStyle.Render("touchstone> "))
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(s.Out)
			s.warnUnsaved()
			fmt.Fprintln(s.Out, "goodbye")
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		s.prompter.AppendHistory(input)
		if done := s.dispatch(input); done {
			return nil
		}
	}
}

// dispatch runs one input line and reports whether the session is over.
func (s *Session) dispatch(input string) bool {
	cmd := newCommand(input)
	if cmd == nil {
		fmt.Fprintf(s.Out, "unrecognized command %q (try help)\n", strings.TrimSpace(input))
		return false
	}

	var err error
	done := false
	switch cmd.op {
	case "load":
		err = s.cmdLoad(cmd.args)
	case "gen":
		err = s.cmdGen(cmd.args)
	case "gen-all":
		err = s.cmdGenAll()
	case "run":
		err = s.cmdRun(cmd.args)
	case "list":
		err = s.cmdList()
	case "approve":
		err = s.cmdApprove(cmd.args, true)
	case "unapprove":
		err = s.cmdApprove(cmd.args, false)
	case "doctor":
		err = s.cmdDoctor()
	case "save":
		done, err = s.cmdSave(cmd.args)
	case "exit":
		done, err = s.cmdExit()
	case "help":
		s.printHelp()
	}
	if errors.Is(err, errAborted) {
		fmt.Fprintln(s.Out)
		return false
	}
	if err != nil {
		fmt.Fprintln(s.Out, ui.FailStyle.Render("error:"), err)
	}
	return done
}

// ask reads a nested prompt, falling back to def on empty input. Ctrl-C
// abandons the operation.
func (s *Session) ask(label, def string) (string, error) {
	input, err := s.prompter.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", errAborted
	}
	if err != nil {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}

func (s *Session) warnUnsaved() {
	if s.Store.Dirty() {
		fmt.Fprintln(s.Out, ui.WarnStyle.Render("warning:"), "unsaved fixture changes were discarded")
	}
}

func (s *Session) printMenu() {
	for _, c := range commands {
		if c.alias == "" {
			continue
		}
		fmt.Fprintf(s.Out, "%s. %-14s %s\n", c.alias, c.syntax(), ui.MutedStyle.Render(c.help))
	}
	fmt.Fprintln(s.Out, ui.MutedStyle.Render("   (help lists every command)"))
}

func (s *Session) printHelp() {
	for _, c := range commands {
		alias := "  "
		if c.alias != "" {
			alias = c.alias + "."
		}
		fmt.Fprintf(s.Out, "%s %-20s %s\n", alias, c.syntax(), c.help)
	}
}

// complete offers command names at the start of the line and fixture keys
// afterwards, so a partial path tab-completes against the loaded store.
func (s *Session) complete(line string) []string {
	if !strings.Contains(line, " ") {
		var out []string
		for _, c := range commands {
			if strings.HasPrefix(c.name, strings.ToLower(line)) {
				out = append(out, c.name)
			}
		}
		return out
	}
	i := strings.LastIndex(line, " ")
	head, frag := line[:i+1], line[i+1:]
	var out []string
	for _, key := range s.Store.Paths() {
		if strings.Contains(key, frag) {
			out = append(out, head+key)
		}
	}
	return out
}
