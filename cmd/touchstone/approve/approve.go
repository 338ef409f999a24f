// Package approve implements the explicit human action the approval gate
// requires: `touchstone approve` and `touchstone unapprove`.
package approve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/fixture"
)

// Cmd represents `touchstone approve`.
var Cmd = &cobra.Command{
	Use:           "approve <path ...>",
	Short:         "Mark fixtures as reviewed by a human",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return flip(cmd, args, true)
	},
}

// UnapproveCmd represents `touchstone unapprove`.
var UnapproveCmd = &cobra.Command{
	Use:           "unapprove <path ...>",
	Short:         "Clear the reviewed mark so fixtures can be recaptured",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return flip(cmd, args, false)
	},
}

func flip(cmd *cobra.Command, args []string, approve bool) error {
	env, err := harness.Load(cmd)
	if err != nil {
		return err
	}
	st := fixture.NewStore()
	if err := st.Load(env.Config.FixturesPath()); err != nil {
		return err
	}
	verb := "approved"
	if !approve {
		verb = "unapproved"
	}
	for _, arg := range args {
		key, err := st.Resolve(arg)
		if err != nil {
			return err
		}
		if approve {
			err = st.Approve(key)
		} else {
			err = st.Unapprove(key)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, key)
	}
	if !st.Dirty() {
		return nil
	}
	return st.Save(env.Config.FixturesPath())
}
