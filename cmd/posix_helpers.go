package cmd

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg/fsops"
)

// These helpers exist for Windows users; the task runner intercepts the same
// commands so that tasks.star scripts don't depend on a POSIX shell.

var mvCmd = &cobra.Command{
	Use:   "mv source... dest",
	Short: "Moves the given files (simplified POSIX mv)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return eris.New("Expected at least 2 arguments!")
		}

		return fsops.Move(args[:len(args)-1], args[len(args)-1])
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm file...",
	Short: "Deletes the given files (simplified POSIX rm)",
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, err := cmd.Flags().GetBool("recursive")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		return fsops.Remove(args, recursive, force)
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir directory...",
	Short: "Creates the given directories (simplified POSIX mkdir)",
	RunE: func(cmd *cobra.Command, args []string) error {
		parents, err := cmd.Flags().GetBool("parents")
		if err != nil {
			return err
		}

		return fsops.MakeDir(args, parents)
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)

	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolP("recursive", "r", false, "delete directories recursively")
	rmCmd.Flags().BoolP("force", "f", false, "ignore missing files")

	rootCmd.AddCommand(mkdirCmd)
	mkdirCmd.Flags().BoolP("parents", "p", false, "create missing parent directories")
}
