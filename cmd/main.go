package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg/buildsys/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "tool",
	Short: "Build tools for Assimilation",
	Long: `This command bundles the tools used to build and publish Assimilation.
This includes the task runner, tools to download & extract dependencies, to
install Go dependencies, to check the compiled WebAssembly module, ...`,
}

func init() {
	rootCmd.AddCommand(cmd.RootCmd)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
