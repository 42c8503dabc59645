package buildsys

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	logger := zerolog.New(io.Discard)
	return WithLogger(context.Background(), &logger)
}

func scriptTask(short, base string, deps []string, cmds ...string) *Task {
	task := &Task{
		Short: short,
		Base:  base,
		Deps:  deps,
		Env:   map[string]string{},
	}

	for idx, cmd := range cmds {
		task.Cmds = append(task.Cmds, TaskCmdScript{TaskName: short, Content: cmd, Index: idx})
	}

	return task
}

func readLog(t *testing.T, dir string) []string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	return strings.Fields(string(content))
}

func TestRunTaskExecutesDepsFirst(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"prepare": scriptTask("prepare", dir, nil, "echo prepare >> run.log"),
		"web":     scriptTask("web", dir, []string{"prepare"}, "echo web >> run.log"),
	}

	require.NoError(t, RunTask(testCtx(), dir, "web", tasks, false, false))
	assert.Equal(t, []string{"prepare", "web"}, readLog(t, dir))
}

func TestUmbrellaTaskRunsEachTaskOnce(t *testing.T) {
	dir := t.TempDir()
	// web and build share the prepare dependency; it must only run once and
	// the umbrella target must run both builds exactly once.
	tasks := TaskList{
		"prepare": scriptTask("prepare", dir, nil, "echo prepare >> run.log"),
		"build":   scriptTask("build", dir, []string{"prepare"}, "echo build >> run.log"),
		"web":     scriptTask("web", dir, []string{"prepare"}, "echo web >> run.log"),
		"all":     scriptTask("all", dir, []string{"web", "build"}),
	}

	require.NoError(t, RunTask(testCtx(), dir, "all", tasks, false, false))

	counts := map[string]int{}
	for _, entry := range readLog(t, dir) {
		counts[entry]++
	}

	assert.Equal(t, map[string]int{"prepare": 1, "build": 1, "web": 1}, counts)
}

func TestSkipIfExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0600))

	task := scriptTask("prepare", dir, nil, "echo prepare >> run.log")
	task.SkipIfExists = []string{"marker"}
	tasks := TaskList{"prepare": task}

	require.NoError(t, RunTask(testCtx(), dir, "prepare", tasks, false, false))
	_, err := os.Stat(filepath.Join(dir, "run.log"))
	assert.True(t, os.IsNotExist(err), "task should have been skipped")

	// --force overrides the marker check
	require.NoError(t, RunTask(testCtx(), dir, "prepare", tasks, false, true))
	assert.Equal(t, []string{"prepare"}, readLog(t, dir))
}

func TestSkipIfExistsRunsWithoutMarker(t *testing.T) {
	dir := t.TempDir()

	task := scriptTask("prepare", dir, nil, "echo prepare >> run.log")
	task.SkipIfExists = []string{"marker"}
	tasks := TaskList{"prepare": task}

	require.NoError(t, RunTask(testCtx(), dir, "prepare", tasks, false, false))
	assert.Equal(t, []string{"prepare"}, readLog(t, dir))
}

func TestRecursiveTasksFail(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"a": scriptTask("a", dir, []string{"b"}),
		"b": scriptTask("b", dir, []string{"a"}),
	}

	err := RunTask(testCtx(), dir, "a", tasks, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursively")
}

func TestDryRunExecutesNothing(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"web": scriptTask("web", dir, nil, "echo web >> run.log"),
	}

	require.NoError(t, RunTask(testCtx(), dir, "web", tasks, true, false))
	_, err := os.Stat(filepath.Join(dir, "run.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestFailingCommandAbortsTask(t *testing.T) {
	dir := t.TempDir()
	tasks := TaskList{
		"web": scriptTask("web", dir, nil, "false", "echo web >> run.log"),
	}

	err := RunTask(testCtx(), dir, "web", tasks, false, false)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "run.log"))
	assert.True(t, os.IsNotExist(statErr), "the remaining commands must not run")
}

func TestMissingTask(t *testing.T) {
	dir := t.TempDir()
	err := RunTask(testCtx(), dir, "nope", TaskList{}, false, false)
	assert.Error(t, err)
}

func TestMvInterception(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "site"), 0770))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.wasm"), []byte("wasm"), 0600))

	// mv is handled in-process, so this works even without a mv binary
	tasks := TaskList{
		"relocate": scriptTask("relocate", dir, nil, "mv game.wasm site/assimilation_bg.wasm"),
	}

	require.NoError(t, RunTask(testCtx(), dir, "relocate", tasks, false, false))

	_, err := os.Stat(filepath.Join(dir, "site", "assimilation_bg.wasm"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "game.wasm"))
	assert.True(t, os.IsNotExist(err))
}

func TestMkdirInterceptionUsesTaskBase(t *testing.T) {
	dir := t.TempDir()
	// relative paths must resolve against the task's base directory, not the
	// process working directory
	tasks := TaskList{
		"setup": scriptTask("setup", dir, nil, "mkdir -p out/sub"),
	}

	require.NoError(t, RunTask(testCtx(), dir, "setup", tasks, false, false))

	info, err := os.Stat(filepath.Join(dir, "out", "sub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRmInterceptionUsesTaskBase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.wasm"), []byte("old"), 0600))

	tasks := TaskList{
		"clean": scriptTask("clean", dir, nil, "rm stale.wasm"),
	}

	require.NoError(t, RunTask(testCtx(), dir, "clean", tasks, false, false))

	_, err := os.Stat(filepath.Join(dir, "stale.wasm"))
	assert.True(t, os.IsNotExist(err))
}

func TestTaskRefCmd(t *testing.T) {
	dir := t.TempDir()
	inner := scriptTask("inner", dir, nil, "echo inner >> run.log")
	outer := scriptTask("outer", dir, nil, "echo outer >> run.log")
	outer.Cmds = append([]TaskCmd{TaskCmdTaskRef{Task: inner}}, outer.Cmds...)

	tasks := TaskList{"inner": inner, "outer": outer}

	require.NoError(t, RunTask(testCtx(), dir, "outer", tasks, false, false))
	assert.Equal(t, []string{"inner", "outer"}, readLog(t, dir))
}

func TestOutputsNewerThanInputsSkips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.rs"), []byte("src"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.wasm"), []byte("out"), 0600))

	// make the output strictly newer than the input
	older := filepath.Join(dir, "input.rs")
	info, err := os.Stat(filepath.Join(dir, "output.wasm"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(older, info.ModTime().Add(-time.Hour), info.ModTime().Add(-time.Hour)))

	task := scriptTask("build", dir, nil, "echo build >> run.log")
	task.Inputs = []string{"input.rs"}
	task.Outputs = []string{"output.wasm"}
	tasks := TaskList{"build": task}

	require.NoError(t, RunTask(testCtx(), dir, "build", tasks, false, false))
	_, statErr := os.Stat(filepath.Join(dir, "run.log"))
	assert.True(t, os.IsNotExist(statErr))
}
