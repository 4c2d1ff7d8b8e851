//go:build windows
// +build windows

package config

import (
	"os"

	"golang.org/x/sys/windows"
)

// lock the first byte; the lock file is never written
func lockRange(f *os.File, flags uint32) error {
	var overlapped windows.Overlapped
	return windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, &overlapped)
}

// lockFileExclusive takes the write lock
func lockFileExclusive(f *os.File) error {
	return lockRange(f, windows.LOCKFILE_EXCLUSIVE_LOCK)
}

// lockFileShared takes the read lock
func lockFileShared(f *os.File) error {
	return lockRange(f, 0)
}

func unlockFile(f *os.File) error {
	var overlapped windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, &overlapped)
}
