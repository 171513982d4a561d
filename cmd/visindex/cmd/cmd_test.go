package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/visindex/internal/store"
)

// testEnv is an isolated project: its own config file, database and home.
type testEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newTestEnv(t *testing.T, scopes string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("VISINDEX_DATABASE", "")
	t.Setenv("VISINDEX_LOG_LEVEL", "error")
	t.Setenv("NO_COLOR", "1")

	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "visindex.yaml"),
		dbPath:     filepath.Join(dir, "catalog.db"),
	}
	content := "database:\n  path: " + env.dbPath + "\n" + scopes
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o644))
	return env
}

// run executes one CLI invocation against the environment.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

// pending returns the pending discovery schedules in the database.
func (e *testEnv) pending(t *testing.T) []store.Schedule {
	t.Helper()
	db, err := store.Open(e.dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.CronSchedules(store.DefaultDiscoveryJobCode).Pending(context.Background())
	require.NoError(t, err)
	return rows
}

const searchOnly = `scopes:
  default:
    klevu/indexing_products_exclude_by_visibility/sync_visibilities: "3,4"
`
