package list

import (
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/session"
)

var flagJSON bool

// Cmd represents `touchstone list`: the fixture table without a session.
var Cmd = &cobra.Command{
	Use:           "list",
	Short:         "List recorded fixtures",
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
		if flagJSON {
			b, err := st.MarshalBytes()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		session.WriteFixtureTable(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	Cmd.Flags().BoolVar(&flagJSON, "json", false, "Print the raw fixture document instead of a table")
}
