package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\n"), 0644))

	watcher, err := NewWatcher(path)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("[general]\ntick_interval_seconds = 2\n"), 0644))

	select {
	case changed := <-watcher.Changes():
		require.Equal(t, path, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\n"), 0644))

	watcher, err := NewWatcher(path)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))

	select {
	case changed := <-watcher.Changes():
		t.Fatalf("unexpected change reported: %s", changed)
	case <-time.After(300 * time.Millisecond):
	}
}
