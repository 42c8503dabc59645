package wasmcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is the smallest valid WebAssembly module: just the magic number
// and the version.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// runModule exports a no-op function "run" and a memory "memory".
var runModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: () -> ()
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	// function section: one function of type 0
	0x03, 0x02, 0x01, 0x00,
	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: "run" (func 0), "memory" (memory 0)
	0x07, 0x10, 0x02,
	0x03, 0x72, 0x75, 0x6e, 0x00, 0x00,
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	// code section: empty body
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
}

func TestInspectBytes(t *testing.T) {
	report, err := InspectBytes(context.Background(), runModule)
	require.NoError(t, err)

	assert.Equal(t, []string{"memory", "run"}, report.Exports)
	assert.Empty(t, report.Imports)
	assert.True(t, report.HasMemory)
}

func TestRequireExportedMemory(t *testing.T) {
	// "memory" in runModule is a memory export, not a function; it still has
	// to satisfy RequireExports because that's how wasm-bindgen emits it
	report, err := InspectBytes(context.Background(), runModule)
	require.NoError(t, err)

	assert.NoError(t, report.RequireExports("memory"))
	assert.NoError(t, report.RequireExports("run", "memory"))
}

func TestInspectBytesEmptyModule(t *testing.T) {
	report, err := InspectBytes(context.Background(), emptyModule)
	require.NoError(t, err)

	assert.Empty(t, report.Exports)
	assert.False(t, report.HasMemory)
}

func TestInspectBytesGarbage(t *testing.T) {
	_, err := InspectBytes(context.Background(), []byte("not wasm at all"))
	assert.Error(t, err)
}

func TestInspectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assimilation_bg.wasm")
	require.NoError(t, os.WriteFile(path, runModule, 0600))

	report, err := Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, report.Exports)

	_, err = Inspect(context.Background(), filepath.Join(dir, "missing.wasm"))
	assert.Error(t, err)
}

func TestRequireExports(t *testing.T) {
	report := &Report{Exports: []string{"memory", "run"}}

	assert.NoError(t, report.RequireExports("run"))
	assert.NoError(t, report.RequireExports("run", "memory"))

	err := report.RequireExports("start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}
