package menu

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alanlang/touchstone/cmd/touchstone/harness"
	"github.com/alanlang/touchstone/internal/session"
)

// Cmd represents `touchstone menu`: the interactive fixture session.
var Cmd = &cobra.Command{
	Use:           "menu",
	Short:         "Interactive fixture session",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("menu needs a terminal; use 'touchstone run' or 'touchstone record' in scripts")
		}
		env, err := harness.Load(cmd)
		if err != nil {
			return err
		}
		s := session.New(env.Config, env.Manifest, env.Logger, cmd.OutOrStdout())
		return s.Loop()
	},
}
