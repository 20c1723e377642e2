package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"boxelab/internal/mir"
	"boxelab/internal/mirtext"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE.toml",
	Short: "Load and validate a MIR module without transforming it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		elaborated, err := cmd.Flags().GetBool("elaborated")
		if err != nil {
			return err
		}
		unit, err := mirtext.LoadFile(args[0])
		if err != nil {
			return err
		}
		opts := mir.ValidateOptions{BoxesElaborated: elaborated}
		if err := mir.Validate(unit.Module, unit.Context.Types, opts); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d funcs\n",
			color.New(color.FgGreen, color.Bold).Sprint("ok"), args[0], len(unit.Module.Funcs))
		return err
	},
}

func init() {
	checkCmd.Flags().Bool("elaborated", false, "also require that no box deref remains")
}
