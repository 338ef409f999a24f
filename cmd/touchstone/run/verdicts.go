package run

import (
	"fmt"
	"io"
	"sort"

	"github.com/alanlang/touchstone/internal/stage"
	"github.com/alanlang/touchstone/internal/ui"
)

// printVerdicts renders the batch outcome, one line per record and stage.
// Mismatching streams print stored and fresh values plus the diff, same
// shape as the interactive session.
func printVerdicts(w io.Writer, env stage.Envelope) {
	for _, r := range env.Records {
		if r.Error != nil {
			fmt.Fprintf(w, "%s %s: %s\n", ui.FailStyle.Render("ERROR"), r.Locator, r.Error.Message)
			continue
		}
		for _, name := range sortedStages(r) {
			cap := r.Captures[name]
			switch {
			case cap == nil:
				continue
			case cap.Skipped != "":
				fmt.Fprintf(w, "%s  %s [%s] %s\n", ui.WarnStyle.Render("SKIP"), r.Locator, name, cap.Skipped)
			case cap.Crashed:
				fmt.Fprintf(w, "%s %s [%s] %s\n", ui.CrashStyle.Render("CRASH"), r.Locator, name, cap.Signal)
			case cap.TimedOut:
				fmt.Fprintf(w, "%s  %s [%s] timed out\n", ui.WarnStyle.Render("HANG"), r.Locator, name)
			case r.Verdicts[name] == nil:
				fmt.Fprintf(w, "%s  %s [%s] no recorded output, raw capture:\n", ui.WarnStyle.Render("NEW"), r.Locator, name)
				fmt.Fprintf(w, "  stdout: %q\n  stderr: %q\n  exit code %d\n", cap.Stdout, cap.Stderr, cap.ExitCode)
			case r.Verdicts[name].Match:
				fmt.Fprintf(w, "%s  %s [%s]\n", ui.PassStyle.Render("PASS"), r.Locator, name)
			default:
				fmt.Fprintf(w, "%s  %s [%s]\n", ui.FailStyle.Render("FAIL"), r.Locator, name)
				for _, sv := range r.Verdicts[name].Streams {
					if sv.Match {
						continue
					}
					fmt.Fprintf(w, "  %s stored: %q\n", sv.Stream, sv.Stored)
					fmt.Fprintf(w, "  %s fresh:  %q\n", sv.Stream, sv.Fresh)
					fmt.Fprintf(w, "  %s diff:   %s\n", sv.Stream, sv.Diff)
				}
			}
		}
	}
	if env.Meta != nil && len(env.Meta.Orphans) > 0 {
		for _, o := range env.Meta.Orphans {
			fmt.Fprintf(w, "%s %s source file is gone (fixture kept)\n", ui.WarnStyle.Render("ORPHAN"), o)
		}
	}
	for _, e := range env.Errors {
		fmt.Fprintf(w, "%s %s %s: %s\n", ui.FailStyle.Render("ERROR"), e.Stage, e.Locator, e.Message)
	}
}

func sortedStages(r stage.Record) []string {
	names := make([]string, 0, len(r.Captures))
	for name := range r.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
