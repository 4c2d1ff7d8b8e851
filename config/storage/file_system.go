// Package storage holds the file primitives shared by the store and the
// tool writers: atomic replacement, optional reads and rotating backups.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// ReadOptional returns a file's content, or "" when the file is absent
func ReadOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// AtomicWrite replaces filePath with data. The content goes to a temporary
// file in the same directory, is synced and renamed over the target, so
// readers see either the old or the new file. An existing file keeps its
// permissions; a new one is created 0600.
func AtomicWrite(filePath string, data []byte) error {
	mode := os.FileMode(0600)
	if info, err := os.Stat(filePath); err == nil {
		mode = info.Mode().Perm()
	}
	return writeAtomic(filePath, data, mode)
}

// AtomicWritePrivate is AtomicWrite for files holding secrets: the result is
// always 0600, whatever the previous mode.
func AtomicWritePrivate(filePath string, data []byte) error {
	return writeAtomic(filePath, data, 0600)
}

func writeAtomic(filePath string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set permissions on temporary file: %w", err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// AtomicFileUpdate backs filePath up when asked, writes newContent atomically
// and prunes old backups. It returns the backup path, if one was made.
func AtomicFileUpdate(filePath, newContent string, backups *BackupManager) (string, error) {
	var backupPath string
	if backups != nil {
		var err error
		if backupPath, err = backups.CreateBackup(filePath); err != nil {
			return "", fmt.Errorf("failed to create backup file: %w", err)
		}
	}

	if err := AtomicWrite(filePath, []byte(newContent)); err != nil {
		return backupPath, err
	}

	if backups != nil {
		if err := backups.CleanupOldBackups(filePath); err != nil {
			return backupPath, fmt.Errorf("file updated but backup cleanup failed: %w", err)
		}
	}
	return backupPath, nil
}

// MigrateFile copies a legacy file to newPath when only the legacy one
// exists. It reports whether a migration happened; the legacy file is kept.
func MigrateFile(legacyPath, newPath string) (bool, error) {
	if legacyPath == "" || FileExists(newPath) || !FileExists(legacyPath) {
		return false, nil
	}
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return false, fmt.Errorf("failed to read legacy file: %w", err)
	}
	if err := AtomicWrite(newPath, data); err != nil {
		return false, fmt.Errorf("failed to migrate %s: %w", legacyPath, err)
	}
	return true, nil
}
