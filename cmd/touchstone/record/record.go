package record

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/stage"
	"github.com/alanlang/touchstone/internal/ui"
)

var (
	flagAll    bool
	flagStages []string
)

// Cmd represents `touchstone record`: non-interactive case generation.
// Captures land in the fixture file pending review; approved cases are
// never touched.
var Cmd = &cobra.Command{
	Use:           "record [path ...]",
	Short:         "Capture fresh outputs as fixtures pending review",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagAll && len(args) == 0 {
			return fmt.Errorf("nothing to record: give source paths or --all")
		}
		if flagAll && len(args) > 0 {
			return fmt.Errorf("--all and explicit paths are mutually exclusive")
		}

		env, err := harness.Load(cmd)
		if err != nil {
			return err
		}
		deps := env.Deps(cmd.OutOrStdout(), cmd.ErrOrStderr())

		action := "record"
		var records []stage.Record
		if flagAll {
			action = "record-all"
		} else {
			records, err = harness.SeedRecords(env.Config, deps.Store, args, true)
			if err != nil {
				return err
			}
		}
		order, err := stage.PreparedActionStages(action)
		if err != nil {
			return err
		}

		in := stage.Envelope{
			Records: records,
			Meta:    stage.NewMeta(env.Config, flagStages, uuid.NewString()),
		}
		out, err := harness.RunStages(context.Background(), in, order, deps)
		if err != nil {
			return err
		}
		printOutcomes(cmd, out)
		if len(out.Errors) > 0 {
			return fmt.Errorf("recording finished with %d errors", len(out.Errors))
		}
		return nil
	},
}

func printOutcomes(cmd *cobra.Command, env stage.Envelope) {
	w := cmd.OutOrStdout()
	for _, r := range env.Records {
		if r.Error != nil {
			fmt.Fprintf(w, "%s %s: %s\n", ui.FailStyle.Render("error"), r.Locator, r.Error.Message)
			continue
		}
		names := make([]string, 0, len(r.Recorded))
		for name := range r.Recorded {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			outcome := r.Recorded[name]
			style := ui.PassStyle
			switch outcome {
			case stage.SkippedApproved:
				style = ui.WarnStyle
			case stage.SkippedCrash, stage.SkippedTimeout, stage.SkippedBuildFailed, stage.SkippedMissingSource:
				style = ui.FailStyle
			case stage.RecordedUnchanged:
				style = ui.MutedStyle
			}
			fmt.Fprintf(w, "%s %s [%s]\n", style.Render(outcome), r.Locator, name)
		}
	}
	for _, e := range env.Errors {
		fmt.Fprintf(w, "%s %s %s: %s\n", ui.FailStyle.Render("error"), e.Stage, e.Locator, e.Message)
	}
}

func init() {
	Cmd.Flags().BoolVar(&flagAll, "all", false, "Record every discovered source file")
	Cmd.Flags().StringSliceVar(&flagStages, "stage", nil, "Stage to record (repeatable; default: every manifest stage)")
}
