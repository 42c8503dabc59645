package cmd

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/wasmcheck"
)

var checkWasmCmd = &cobra.Command{
	Use:   "check-wasm module.wasm",
	Short: "Validates a compiled WebAssembly module",
	Long: `Compiles the given .wasm file in-memory to make sure it is a valid module
and prints its imports and exports. Use --require to assert that specific
exports exist (for example the wasm-bindgen entry points).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return eris.New("Expected 1 argument!")
		}

		required, err := cmd.Flags().GetStringSlice("require")
		if err != nil {
			return err
		}

		report, err := wasmcheck.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		pkg.PrintTask(fmt.Sprintf("%s: %d exports, %d imports", args[0], len(report.Exports), len(report.Imports)))
		for _, name := range report.Exports {
			pkg.PrintSubtask("export " + name)
		}
		for _, name := range report.Imports {
			pkg.PrintSubtask("import " + name)
		}

		if !report.HasMemory {
			pkg.PrintError("module does not export a memory")
		}

		return report.RequireExports(required...)
	},
}

func init() {
	rootCmd.AddCommand(checkWasmCmd)
	checkWasmCmd.Flags().StringSlice("require", nil, "Fail unless the module exports these names")
}
