package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"boxelab/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "boxelab",
	Short: "Box deref elaboration for MIR modules",
	Long: `boxelab loads MIR modules written as TOML, rewrites every dereference of
box<T> into a read of the box's pointer field followed by a plain pointer
deref, and prints or checks the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		mode, err := readColorMode(colorFlag)
		if err != nil {
			return err
		}
		applyColorMode(mode)

		verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return err
		}
		return setupLogging(verbose)
	},
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(elaborateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log pass activity to stderr")
}

// main executes the root command. A failing command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
