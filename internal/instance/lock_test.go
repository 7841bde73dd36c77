package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLock(t *testing.T) *Lock {
	t.Helper()
	return &Lock{lockPath: filepath.Join(t.TempDir(), "codefocus.pid")}
}

func TestTryLockAndRelease(t *testing.T) {
	lock := testLock(t)

	require.NoError(t, lock.TryLock())
	assert.True(t, lock.IsLocked())

	data, err := os.ReadFile(lock.GetLockPath())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))

	require.NoError(t, lock.Release())
	assert.False(t, lock.IsLocked())

	_, err = os.Stat(lock.GetLockPath())
	assert.True(t, os.IsNotExist(err))

	// Releasing again is a no-op
	require.NoError(t, lock.Release())
}

func TestSecondInstanceRejected(t *testing.T) {
	first := testLock(t)
	require.NoError(t, first.TryLock())
	defer first.Release()

	second := &Lock{lockPath: first.GetLockPath()}
	err := second.TryLock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.False(t, second.IsLocked())
}

func TestStaleLockReclaimed(t *testing.T) {
	lock := testLock(t)

	// A pid of 0 can never belong to a live instance
	require.NoError(t, os.WriteFile(lock.GetLockPath(), []byte("0\n"), 0644))

	require.NoError(t, lock.TryLock())
	assert.True(t, lock.IsLocked())
	require.NoError(t, lock.Release())
}

func TestMalformedLockFileReclaimed(t *testing.T) {
	lock := testLock(t)

	require.NoError(t, os.WriteFile(lock.GetLockPath(), []byte("not a pid\n"), 0644))

	require.NoError(t, lock.TryLock())
	assert.True(t, lock.IsLocked())
	require.NoError(t, lock.Release())
}
