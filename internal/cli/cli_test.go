package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpad/internal/task"
)

// run executes one command line against the config in dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "config.toml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAddListStats(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "add", "write", "report", "--priority", "high")
	require.NoError(t, err)
	_, err = run(t, dir, "add", "water plants", "-p", "low")
	require.NoError(t, err)

	out, err := run(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "write report")
	assert.Contains(t, out, "water plants")

	out, err = run(t, dir, "list", "--priority", "low")
	require.NoError(t, err)
	assert.Contains(t, out, "water plants")
	assert.NotContains(t, out, "write report")

	out, err = run(t, dir, "list", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found.")

	out, err = run(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:     2")
	assert.Contains(t, out, "Completed: 0 (0%)")

	assert.FileExists(t, filepath.Join(dir, "todo-app.db"))
	assert.FileExists(t, filepath.Join(dir, "taskpad.log"))
}

func TestListSortByName(t *testing.T) {
	dir := t.TempDir()
	for _, title := range []string{"beta", "alpha", "gamma"} {
		_, err := run(t, dir, "add", title)
		require.NoError(t, err)
	}

	out, err := run(t, dir, "list", "--sort", "name", "--order", "asc")
	require.NoError(t, err)
	a, b, g := strings.Index(out, "alpha"), strings.Index(out, "beta"), strings.Index(out, "gamma")
	assert.True(t, a < b && b < g, out)
}

func TestListRejectsUnknownFilter(t *testing.T) {
	_, err := run(t, t.TempDir(), "list", "--status", "archived")
	assert.ErrorIs(t, err, task.ErrInvalidFilter)
}

func TestAddRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "thing", "--priority", "urgent")
	assert.ErrorIs(t, err, task.ErrInvalidPriority)

	_, err = run(t, dir, "add", "   ")
	assert.ErrorIs(t, err, task.ErrEmptyTitle)
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "doomed")
	require.NoError(t, err)

	_, err = run(t, dir, "purge")
	assert.ErrorIs(t, err, errPurgeNotConfirmed)

	out, err := run(t, dir, "purge", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All tasks deleted.")

	out, err = run(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:     0")
}
