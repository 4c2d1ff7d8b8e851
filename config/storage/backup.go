package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// DefaultBackupRetention is the default number of backups to keep per file
const DefaultBackupRetention = 3

// BackupManager manages timestamped copies of tool settings files
type BackupManager struct {
	// MaxBackups is the maximum number of backups to retain
	MaxBackups int
	now        func() time.Time
}

// NewBackupManager creates a BackupManager; a non-positive limit uses the default
func NewBackupManager(maxBackups int) *BackupManager {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupRetention
	}
	return &BackupManager{MaxBackups: maxBackups, now: time.Now}
}

func backupPattern(filePath string) string {
	return filePath + ".backup-*"
}

// CreateBackup copies filePath to filePath.backup-YYYYMMDDHHMMSS-PID. A
// missing file has nothing to back up and returns an empty path.
func (bm *BackupManager) CreateBackup(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s for backup: %w", filePath, err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", filePath, err)
	}

	now := time.Now
	if bm.now != nil {
		now = bm.now
	}
	base := fmt.Sprintf("%s.backup-%s-%d", filePath, now().Format("20060102150405"), os.Getpid())
	backupPath := base
	for i := 1; FileExists(backupPath); i++ {
		backupPath = base + "-" + strconv.Itoa(i)
	}

	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}

// ListBackups returns the backups of filePath, oldest first
func (bm *BackupManager) ListBackups(filePath string) ([]string, error) {
	backupFiles, err := filepath.Glob(backupPattern(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	modTimes := make(map[string]time.Time, len(backupFiles))
	for _, f := range backupFiles {
		if info, err := os.Stat(f); err == nil {
			modTimes[f] = info.ModTime()
		}
	}
	sort.SliceStable(backupFiles, func(i, j int) bool {
		ti, tj := modTimes[backupFiles[i]], modTimes[backupFiles[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return backupLess(backupFiles[i], backupFiles[j])
	})
	return backupFiles, nil
}

// backupLess orders names by length first so "-10" sorts after "-9"
func backupLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// CleanupOldBackups removes all but the newest MaxBackups backups
func (bm *BackupManager) CleanupOldBackups(filePath string) error {
	backupFiles, err := bm.ListBackups(filePath)
	if err != nil {
		return err
	}

	numToRemove := len(backupFiles) - bm.MaxBackups
	if numToRemove <= 0 {
		return nil
	}
	for _, oldBackup := range backupFiles[:numToRemove] {
		if err := os.Remove(oldBackup); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", oldBackup, err)
		}
	}
	return nil
}

// RestoreFromBackup atomically replaces filePath with backupPath's content
func (bm *BackupManager) RestoreFromBackup(filePath, backupPath string) error {
	match, err := filepath.Match(backupPattern(filePath), backupPath)
	if err != nil {
		return fmt.Errorf("invalid backup path: %w", err)
	}
	if !match {
		return fmt.Errorf("backup path %s is not a valid backup for %s", backupPath, filePath)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if err := AtomicWrite(filePath, data); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	return nil
}

// RestoreFromLatestBackup restores filePath from its newest backup and
// returns the backup used.
func (bm *BackupManager) RestoreFromLatestBackup(filePath string) (string, error) {
	backupFiles, err := bm.ListBackups(filePath)
	if err != nil {
		return "", err
	}
	if len(backupFiles) == 0 {
		return "", fmt.Errorf("no backup files found for %s", filePath)
	}

	latest := backupFiles[len(backupFiles)-1]
	return latest, bm.RestoreFromBackup(filePath, latest)
}
