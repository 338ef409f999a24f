package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alanlang/touchstone/internal/compare"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/manifest"
	"github.com/alanlang/touchstone/internal/stage"
	"github.com/alanlang/touchstone/internal/toolchain"
	"github.com/alanlang/touchstone/internal/ui"
)

func (s *Session) cmdLoad(args []string) error {
	path := firstArg(args)
	if path == "" {
		var err error
		path, err = s.ask(fmt.Sprintf("fixture file [%s]: ", s.Config.FixturesPath()), s.Config.FixturesPath())
		if err != nil {
			return err
		}
	}
	if err := s.Store.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "loaded %d cases from %s\n", s.Store.Len(), path)
	return nil
}

func (s *Session) cmdGen(args []string) error {
	path := firstArg(args)
	if path == "" {
		var err error
		path, err = s.ask("source file (relative to project root): ", "")
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no source file given")
		}
	}
	loc, err := s.toLocator(path)
	if err != nil {
		return err
	}
	return s.generate(loc)
}

// generate captures one case. Order matters and mirrors the menu flow:
// missing source aborts, staleness is flagged, approval blocks, then
// build, invoke, store pending review.
func (s *Session) generate(loc string) error {
	src := filepath.Join(s.Config.Project.Root, filepath.FromSlash(loc))
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source %s not found", loc)
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9

	c, exists := s.Store.Get(loc)
	if exists {
		stale := s.Store.MarkStale(loc, mtime)
		if c.Checked {
			if stale {
				fmt.Fprintln(s.Out, ui.WarnStyle.Render("stale:"), loc, "changed since its last capture and needs review")
			}
			fmt.Fprintln(s.Out, ui.WarnStyle.Render("skipped:"), loc, "was reviewed by a human (unapprove to recapture)")
			return nil
		}
	}

	ctx := context.Background()
	for _, st := range s.Manifest.Stages {
		if err := s.ensureBuilt(ctx, st); err != nil {
			fmt.Fprintln(s.Out, ui.FailStyle.Render("build failed:"), err)
			continue
		}
		cap, err := s.Invoker.Invoke(ctx, st.Bin, src)
		if err != nil {
			fmt.Fprintf(s.Out, "%s %s: %v\n", ui.FailStyle.Render("cannot run"), st.Bin, err)
			continue
		}
		if cap.Crashed {
			s.reportCrash(st.Name, cap)
			continue
		}
		if cap.TimedOut {
			fmt.Fprintln(s.Out, ui.WarnStyle.Render("timed out"), "(not recorded)")
			continue
		}

		stdout, err := s.Normalize(loc, st.Name, "stdout", cap.Stdout)
		if err != nil {
			return fmt.Errorf("normalize stdout: %w", err)
		}
		stderr, err := s.Normalize(loc, st.Name, "stderr", cap.Stderr)
		if err != nil {
			return fmt.Errorf("normalize stderr: %w", err)
		}

		if !exists {
			c = fixture.NewCase(mtime)
			exists = true
		}
		c.SetResult(st.Name, &fixture.Result{Stdout: stdout, Stderr: stderr, Vouch: fixture.VouchPending})
		c.Time = mtime
		c.Stale = false
		s.Store.Put(loc, c)

		fmt.Fprintf(s.Out, "%s %s %s\n", ui.HeadingStyle.Render("captured"), loc, ui.MutedStyle.Render("["+st.Name+"] please check:"))
		s.printStreams(stderr, stdout)
	}
	return nil
}

// cmdGenAll captures every discovered source through the batch pipeline.
// The in-memory store is authoritative during a session, so the stages
// that load and write the fixture file are skipped; save persists later.
func (s *Session) cmdGenAll() error {
	order, err := stage.PreparedActionStages("record-all")
	if err != nil {
		return err
	}
	var stages []string
	for _, name := range order {
		if name == "load-fixtures" || name == "write-fixtures" {
			continue
		}
		stages = append(stages, name)
	}

	deps := stage.Deps{
		Logger:   s.Logger,
		Store:    s.Store,
		Manifest: s.Manifest,
		Builder:  s.Builder,
		Invoker:  s.Invoker,
		Stdout:   s.Out,
		Stderr:   s.Out,
	}
	env := stage.Envelope{Meta: stage.NewMeta(s.Config, nil, s.ID)}
	ctx := context.Background()
	for _, name := range stages {
		env, err = stage.Run(ctx, name, env, deps)
		if err != nil {
			return err
		}
	}

	counts := map[string]int{}
	for _, r := range env.Records {
		for _, outcome := range r.Recorded {
			counts[outcome]++
		}
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(s.Out, "%-22s %d\n", o, counts[o])
	}
	for _, e := range env.Errors {
		fmt.Fprintln(s.Out, ui.FailStyle.Render("error:"), e.Stage, e.Locator, e.Message)
	}
	fmt.Fprintf(s.Out, "store now holds %d cases (save to persist)\n", s.Store.Len())
	return nil
}

func (s *Session) cmdRun(args []string) error {
	if arg := firstArg(args); arg != "" {
		key, err := s.Store.Resolve(arg)
		if err != nil {
			return err
		}
		return s.runCase(key)
	}
	if s.Store.Len() == 0 {
		fmt.Fprintln(s.Out, ui.MutedStyle.Render("no fixtures loaded (try load, gen or gen-all)"))
		return nil
	}
	for _, key := range s.Store.Paths() {
		if err := s.runCase(key); err != nil {
			return err
		}
	}
	return nil
}

// runCase re-runs every manifest stage for one fixture key and judges the
// fresh capture against the stored result. A key with no stored result
// for a stage gets its raw output printed instead of a verdict.
func (s *Session) runCase(loc string) error {
	s.testNr++
	fmt.Fprintf(s.Out, "%s %d: %s\n", ui.HeadingStyle.Render("Test"), s.testNr, loc)

	c, _ := s.Store.Get(loc)
	src := filepath.Join(s.Config.Project.Root, filepath.FromSlash(loc))
	ctx := context.Background()

	for _, st := range s.Manifest.Stages {
		fmt.Fprintf(s.Out, "  %s\n", ui.HeadingStyle.Render(st.Name))
		if err := s.ensureBuilt(ctx, st); err != nil {
			fmt.Fprintln(s.Out, "  ", ui.FailStyle.Render("build failed:"), err)
			continue
		}
		cap, err := s.Invoker.Invoke(ctx, st.Bin, src)
		if err != nil {
			fmt.Fprintf(s.Out, "   %s %s: %v\n", ui.FailStyle.Render("cannot run"), st.Bin, err)
			continue
		}
		if cap.Crashed {
			s.reportCrash(st.Name, cap)
			continue
		}

		stored := c.Result(st.Name)
		if stored == nil {
			fmt.Fprintln(s.Out, "  ", ui.WarnStyle.Render("no recorded output"), "raw capture:")
			s.printStreams(cap.Stderr, cap.Stdout)
			fmt.Fprintf(s.Out, "   exit code %d\n", cap.ExitCode)
			continue
		}

		stdout, err := s.Normalize(loc, st.Name, "stdout", cap.Stdout)
		if err != nil {
			return fmt.Errorf("normalize stdout: %w", err)
		}
		stderr, err := s.Normalize(loc, st.Name, "stderr", cap.Stderr)
		if err != nil {
			return fmt.Errorf("normalize stderr: %w", err)
		}
		v := compare.Streams(stored.Stdout, stored.Stderr, stdout, stderr)
		for _, sv := range v.Streams {
			if sv.Match {
				fmt.Fprintf(s.Out, "   %s %s\n", ui.PassStyle.Render("PASS"), sv.Stream)
				continue
			}
			fmt.Fprintf(s.Out, "   %s %s\n", ui.FailStyle.Render("FAIL"), sv.Stream)
			fmt.Fprintf(s.Out, "   stored: %q\n", sv.Stored)
			fmt.Fprintf(s.Out, "   fresh:  %q\n", sv.Fresh)
			fmt.Fprintf(s.Out, "   diff:   %s\n", sv.Diff)
		}
	}
	return nil
}

func (s *Session) cmdList() error {
	if s.Store.Len() == 0 {
		fmt.Fprintln(s.Out, ui.MutedStyle.Render("no fixtures loaded"))
		return nil
	}
	WriteFixtureTable(s.Out, s.Store)
	return nil
}

func (s *Session) cmdApprove(args []string, approve bool) error {
	arg := firstArg(args)
	if arg == "" {
		return fmt.Errorf("which case? (approve <path>)")
	}
	key, err := s.Store.Resolve(arg)
	if err != nil {
		return err
	}
	if approve {
		err = s.Store.Approve(key)
	} else {
		err = s.Store.Unapprove(key)
	}
	if err != nil {
		return err
	}
	verb := "approved"
	if !approve {
		verb = "unapproved"
	}
	fmt.Fprintf(s.Out, "%s %s\n", verb, key)
	return nil
}

func (s *Session) cmdDoctor() error {
	rep := s.Store.Audit(s.Config.Project.Root)
	if rep.Clean() {
		fmt.Fprintln(s.Out, ui.PassStyle.Render("healthy:"), "every fixture has a source, is current and was reviewed")
		return nil
	}
	writeAuditSection(s.Out, "orphaned (source file gone)", rep.Orphans)
	writeAuditSection(s.Out, "stale (source newer than capture)", rep.Stale)
	writeAuditSection(s.Out, "never approved", rep.Unapproved)
	return nil
}

func writeAuditSection(w io.Writer, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d)\n", ui.WarnStyle.Render(title), len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
}

func (s *Session) cmdSave(args []string) (bool, error) {
	def := s.Store.Path()
	if def == "" {
		def = s.Config.FixturesPath()
	}
	path := firstArg(args)
	if path == "" {
		var err error
		path, err = s.ask(fmt.Sprintf("save to [%s]: ", def), def)
		if err != nil {
			return false, err
		}
	}
	if err := s.Store.Save(path); err != nil {
		return false, err
	}
	fmt.Fprintf(s.Out, "saved %d cases to %s\n", s.Store.Len(), path)
	return true, nil
}

func (s *Session) cmdExit() (bool, error) {
	if s.Store.Dirty() {
		answer, err := s.ask("discard unsaved changes? [y/N] ", "n")
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			return false, nil
		}
		s.warnUnsaved()
	}
	fmt.Fprintln(s.Out, "goodbye")
	return true, nil
}

// ensureBuilt builds the stage target through the cached builder. A warn
// status surfaces the build stderr once; a failure is an error for the
// caller to report.
func (s *Session) ensureBuilt(ctx context.Context, st manifest.Stage) error {
	res, err := s.Builder.Build(ctx, st)
	if err != nil {
		return err
	}
	switch res.Status {
	case toolchain.BuildFailed:
		return fmt.Errorf("%s: %s", st.Target, strings.TrimSpace(res.Stderr))
	case toolchain.BuildWarn:
		if !res.Cached {
			fmt.Fprintln(s.Out, ui.WarnStyle.Render("build warnings:"), strings.TrimSpace(res.Stderr))
		}
	default:
		if !res.Cached {
			fmt.Fprintln(s.Out, ui.MutedStyle.Render("compiled "+st.Target))
		}
	}
	return nil
}

func (s *Session) reportCrash(stageName string, cap toolchain.Capture) {
	sig := cap.Signal
	if sig == "" {
		sig = "SIGSEGV"
	}
	fmt.Fprintf(s.Out, "   %s %s (%s) not recorded\n", ui.CrashStyle.Render("CRASH"), stageName, sig)
	s.printStreams(cap.Stderr, cap.Stdout)
}

func (s *Session) printStreams(stderr, stdout string) {
	fmt.Fprintln(s.Out, ui.FailStyle.Render("   stderr:"))
	fmt.Fprint(s.Out, indent(stderr))
	fmt.Fprintln(s.Out, ui.PassStyle.Render("   stdout:"))
	fmt.Fprint(s.Out, indent(stdout))
}

func indent(text string) string {
	if text == "" {
		return "    (empty)\n"
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// toLocator turns user path input into a fixture key: project-relative,
// forward slashes. Absolute paths must fall inside the project root.
func (s *Session) toLocator(arg string) (string, error) {
	root, err := filepath.Abs(s.Config.Project.Root)
	if err != nil {
		return "", err
	}
	abs := arg
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, arg)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project root", arg)
	}
	return filepath.ToSlash(rel), nil
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
