package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/core"
	"experimentdb/internal/fixtures"
	"experimentdb/pkg/domain"
)

// execute runs the root command in a scratch directory and returns stdout.
func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func scratch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestMigrateCreatesSQLiteFile(t *testing.T) {
	dir := scratch(t)
	path := filepath.Join(dir, "lab.db")

	out, _, err := execute(t, context.Background(), "migrate", "--sqlite-path", path)
	require.NoError(t, err)
	assert.Equal(t, "Schema for sqlite storage is up to date.\n", out)
	assert.FileExists(t, path)
}

func TestLoadDataIsIdempotent(t *testing.T) {
	dir := scratch(t)
	path := filepath.Join(dir, "lab.db")

	for range 2 {
		out, _, err := execute(t, context.Background(), "loaddata", "--sqlite-path", path)
		require.NoError(t, err)
		assert.Equal(t, "Installed 6 object(s) from 5 fixture(s)\n", out)
	}

	store, err := core.OpenPersistentStore(context.Background(), core.StorageOptions{Driver: core.StorageSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer store.Close()
	err = store.View(context.Background(), func(v domain.View) error {
		p, err := v.GetProtocol(1)
		require.NoError(t, err)
		assert.Equal(t, "fixture-protocol", p.SlugValue())
		return nil
	})
	require.NoError(t, err)
}

func TestLoadDataNamedFixtures(t *testing.T) {
	scratch(t)
	out, _, err := execute(t, context.Background(), "loaddata", "--storage-driver", "memory", "test_construct", "test_primer")
	require.NoError(t, err)
	assert.Equal(t, "Installed 2 object(s) from 2 fixture(s)\n", out)

	_, _, err = execute(t, context.Background(), "loaddata", "--storage-driver", "memory", "test_missing")
	require.Error(t, err)
}

func TestLoadDataList(t *testing.T) {
	scratch(t)
	out, _, err := execute(t, context.Background(), "loaddata", "--list", "--storage-driver", "memory")
	require.NoError(t, err)
	for _, name := range fixtures.Names() {
		assert.Contains(t, out, name+"\n")
	}
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	scratch(t)
	_, stderr, err := execute(t, context.Background(), "migrate", "--storage-driver", "mysql")
	require.ErrorContains(t, err, "invalid config")
	assert.Contains(t, stderr, "invalid config")
}

func TestDotEnvAndConfigFile(t *testing.T) {
	dir := scratch(t)
	t.Setenv("EXPERIMENTDB_STORAGE_DRIVER", "")
	require.NoError(t, os.Unsetenv("EXPERIMENTDB_STORAGE_DRIVER"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EXPERIMENTDB_STORAGE_DRIVER=memory\n"), 0o600))

	out, _, err := execute(t, context.Background(), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "memory storage")

	cfgPath := filepath.Join(dir, "experimentdb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: verbose\n"), 0o600))
	_, _, err = execute(t, context.Background(), "migrate", "--config", cfgPath)
	require.ErrorContains(t, err, "invalid config")
}

func TestServeStopsWithContext(t *testing.T) {
	scratch(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, stderr, err := execute(t, ctx, "serve",
		"--storage-driver", "memory",
		"--blob-driver", "memory",
		"--addr", "127.0.0.1:0",
		"--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "starting server")
}

func TestServeRejectsUnusableFileStorage(t *testing.T) {
	scratch(t)
	_, _, err := execute(t, context.Background(), "serve",
		"--storage-driver", "memory",
		"--blob-driver", "ftp")
	require.ErrorContains(t, err, "invalid config")
}
