package run

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/stage"
)

var (
	flagStages   []string
	flagReport   string
	flagPretty   bool
	flagLines    bool
	flagProgress bool
)

// Cmd represents the `touchstone run` command: re-run every recorded case
// (or the given ones) and compare fresh output against the fixtures.
var Cmd = &cobra.Command{
	Use:           "run [path ...]",
	Short:         "Compare recorded cases against fresh scanner output",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := harness.Load(cmd)
		if err != nil {
			return err
		}
		deps := env.Deps(cmd.OutOrStdout(), cmd.ErrOrStderr())

		records, err := harness.SeedRecords(env.Config, deps.Store, args, false)
		if err != nil {
			return err
		}

		order, err := stage.PreparedActionStages("check")
		if err != nil {
			return err
		}
		in := stage.Envelope{
			Records: records,
			Meta:    stage.NewMeta(env.Config, flagStages, uuid.NewString()),
		}
		if flagReport != "" {
			in.Meta.Output = &stage.OutputMeta{Out: flagReport, Pretty: flagPretty, Lines: flagLines}
			order = append(order, "write-report")
		}

		progress := newProgressReporter(flagProgress, cmd.ErrOrStderr())
		out := in
		ctx := context.Background()
		for _, name := range order {
			out, err = progress.runStage(ctx, name, out, deps)
			if err != nil {
				return err
			}
		}

		// Human verdicts, unless the JSON report owns stdout.
		if flagReport != "-" {
			printVerdicts(cmd.OutOrStdout(), out)
		}
		return evaluateRunExit(out)
	},
}

func init() {
	Cmd.Flags().StringSliceVar(&flagStages, "stage", nil, "Stage to run (repeatable; default: every manifest stage)")
	Cmd.Flags().StringVar(&flagReport, "report", "", "Write the JSON run report to a file, or - for stdout")
	Cmd.Flags().BoolVar(&flagPretty, "pretty", false, "Pretty-print the JSON report")
	Cmd.Flags().BoolVar(&flagLines, "lines", false, "Write the report as NDJSON record lines")
	Cmd.Flags().BoolVar(&flagProgress, "progress", false, "Print stage progress lines to stderr")
}
