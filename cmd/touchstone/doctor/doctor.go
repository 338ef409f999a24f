package doctor

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/ui"
)

type doctorExitError struct{ problems int }

func (e doctorExitError) Error() string {
	return fmt.Sprintf("%d fixture problems found", e.problems)
}
func (e doctorExitError) ExitCode() int { return 1 }

// Cmd represents `touchstone doctor`: fixture health without running any
// binary. Orphans, staleness and missing review are reported, never
// repaired; fixing them is a human decision.
var Cmd = &cobra.Command{
	Use:           "doctor",
	Short:         "Report orphaned, stale and unreviewed fixtures",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := harness.Load(cmd)
		if err != nil {
			return err
		}
		st := fixture.NewStore()
		if err := st.Load(env.Config.FixturesPath()); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		rep := st.Audit(env.Config.Project.Root)
		if rep.Clean() {
			fmt.Fprintln(w, ui.PassStyle.Render("healthy:"), "every fixture has a source, is current and was reviewed")
			return nil
		}
		section(cmd, "orphaned (source file gone)", rep.Orphans)
		section(cmd, "stale (source newer than capture)", rep.Stale)
		section(cmd, "never approved", rep.Unapproved)
		return doctorExitError{problems: len(rep.Orphans) + len(rep.Stale) + len(rep.Unapproved)}
	},
}

func section(cmd *cobra.Command, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%d)\n", ui.WarnStyle.Render(title), len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
}
