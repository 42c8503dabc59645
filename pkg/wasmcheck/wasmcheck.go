// Package wasmcheck validates compiled WebAssembly artifacts before they are
// packaged for the web. The module is only compiled, never executed, which is
// enough to catch truncated downloads and binding mismatches.
package wasmcheck

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tetratelabs/wazero"
)

// Report summarizes the surface of a WebAssembly module.
type Report struct {
	Exports   []string
	Imports   []string
	HasMemory bool
}

// Inspect reads and compiles the given .wasm file.
func Inspect(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}

	report, err := InspectBytes(ctx, data)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to inspect %s", path)
	}

	return report, nil
}

// InspectBytes compiles the module in memory and collects its imports,
// exports and memory declarations.
func InspectBytes(ctx context.Context, data []byte) (*Report, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)

	module, err := runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, eris.Wrap(err, "not a valid WebAssembly module")
	}
	defer module.Close(ctx)

	report := &Report{}

	// wasm-bindgen exports the linear memory under the name "memory", so
	// memory exports count as exports just like functions
	for name := range module.ExportedFunctions() {
		report.Exports = append(report.Exports, name)
	}
	for name := range module.ExportedMemories() {
		report.Exports = append(report.Exports, name)
	}
	sort.Strings(report.Exports)

	for _, def := range module.ImportedFunctions() {
		modName, name, ok := def.Import()
		if ok {
			report.Imports = append(report.Imports, fmt.Sprintf("%s.%s", modName, name))
		}
	}
	sort.Strings(report.Imports)

	report.HasMemory = len(module.ExportedMemories()) > 0

	return report, nil
}

// RequireExports fails if any of the given export names is missing.
func (r *Report) RequireExports(names ...string) error {
	available := make(map[string]bool, len(r.Exports))
	for _, name := range r.Exports {
		available[name] = true
	}

	for _, name := range names {
		if !available[name] {
			return eris.Errorf("module does not export %s", name)
		}
	}

	return nil
}
