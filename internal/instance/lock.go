package instance

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a single-instance guard backed by a PID file. Exactly one engine
// may ever be live for a user, which is what keeps the at-most-one-open-
// session invariant cheap to hold.
type Lock struct {
	lockPath string
	held     bool
}

// NewLock creates a lock rooted in the application's home directory.
func NewLock() (*Lock, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	lockDir := filepath.Join(homeDir, ".codefocus")
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &Lock{
		lockPath: filepath.Join(lockDir, "codefocus.pid"),
	}, nil
}

// TryLock attempts to acquire the single-instance lock. A stale PID file
// left by a dead process is cleaned up and retried once.
func (l *Lock) TryLock() error {
	err := l.writePIDFile()
	if err == nil {
		l.held = true
		return nil
	}
	if !os.IsExist(err) {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	pid, readErr := l.readPID()
	if readErr == nil && processAlive(pid) {
		return fmt.Errorf("another instance of codefocus is already running (pid %d)", pid)
	}

	log.Printf("Removing stale lock file (pid %d)", pid)
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock file: %w", err)
	}

	if err := l.writePIDFile(); err != nil {
		return fmt.Errorf("failed to reacquire lock: %w", err)
	}

	l.held = true
	return nil
}

func (l *Lock) writePIDFile() error {
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write pid: %w", err)
	}

	return file.Sync()
}

func (l *Lock) readPID() (int, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file: %w", err)
	}

	return pid, nil
}

// processAlive reports whether a process with the given pid still exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		// Windows reports a missing process here
		return false
	}

	if runtime.GOOS == "windows" {
		return true
	}

	// On unix FindProcess always succeeds; signal 0 probes for existence
	// without delivering anything
	return process.Signal(syscall.Signal(0)) == nil
}

// Release removes the PID file if this instance holds the lock.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}

	l.held = false
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	return nil
}

// IsLocked returns true if this instance holds the lock.
func (l *Lock) IsLocked() bool {
	return l.held
}

// GetLockPath returns the path to the lock file.
func (l *Lock) GetLockPath() string {
	return l.lockPath
}
