package root

import (
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/cmd/touchstone/approve"
	"github.com/alanlang/touchstone/cmd/touchstone/diagnose"
	"github.com/alanlang/touchstone/cmd/touchstone/doctor"
	"github.com/alanlang/touchstone/cmd/touchstone/list"
	"github.com/alanlang/touchstone/cmd/touchstone/menu"
	"github.com/alanlang/touchstone/cmd/touchstone/record"
	"github.com/alanlang/touchstone/cmd/touchstone/run"
	"github.com/alanlang/touchstone/cmd/touchstone/version"
)

// NewRootCmd creates the root command for touchstone.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "touchstone",
		Short: "CLI: golden-fixture regression harness for ALAN compiler stage binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "touchstone.cue", "Path to the harness config file (.cue)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "Log format: text, json, json-pretty")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Subcommands
	cmd.AddCommand(menu.Cmd)
	cmd.AddCommand(run.Cmd)
	cmd.AddCommand(record.Cmd)
	cmd.AddCommand(list.Cmd)
	cmd.AddCommand(approve.Cmd)
	cmd.AddCommand(approve.UnapproveCmd)
	cmd.AddCommand(doctor.Cmd)
	cmd.AddCommand(diagnose.Cmd)
	cmd.AddCommand(version.VersionCmd)

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
