package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/eliteGoblin/wsl-toast/internal/jsonc"
)

// FileOptions tune MergeFile behavior.
type FileOptions struct {
	Merge MergeOptions
	// CreateBackup copies the original raw text into BackupDir before the
	// first overwrite. Only applies when the target file existed.
	CreateBackup bool
	// BackupDir receives timestamped backups. Defaults to a "backups"
	// directory next to the target file.
	BackupDir string
	// Force applies the update even when the target file fails to parse,
	// treating it as an empty document.
	Force bool
}

// MergeFileResult reports what MergeFile did.
type MergeFileResult struct {
	Merged     map[string]any
	Changed    bool
	BackupPath string
}

// MergeFile reads the settings file at path (tolerating non-existence as an
// empty document), deep-merges update into it and writes the result back
// atomically. When the merge is a no-op the file is left untouched and no
// backup is made, so repeated installation is safe.
func MergeFile(path string, update map[string]any, opts FileOptions) (*MergeFileResult, error) {
	raw, err := os.ReadFile(path)
	existed := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	parsed := jsonc.Parse(string(raw))
	if !parsed.Ok() && !opts.Force {
		first := parsed.Errors[0]
		return nil, fmt.Errorf("settings file %s is not valid JSONC: %s", path, first.Error())
	}
	existing := parsed.Data

	merged := Merge(existing, update, opts.Merge)
	if err := Validate(merged); err != nil {
		return nil, err
	}

	result := &MergeFileResult{Merged: merged}
	if reflect.DeepEqual(existing, merged) {
		return result, nil
	}
	result.Changed = true

	if opts.CreateBackup && existed {
		backupPath, err := writeBackup(path, raw, opts.BackupDir)
		if err != nil {
			return nil, err
		}
		result.BackupPath = backupPath
	}

	if err := writeAtomic(path, merged); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateFile reads the settings file, applies mutate in place and writes
// the document back atomically when mutate reports a change. A missing
// file means there is nothing to update.
func UpdateFile(path string, mutate func(doc map[string]any) bool) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	parsed := jsonc.Parse(string(raw))
	if !parsed.Ok() {
		return false, fmt.Errorf("settings file %s is not valid JSONC: %s", path, parsed.Errors[0].Error())
	}

	doc := parsed.Data
	if !mutate(doc) {
		return false, nil
	}
	if err := Validate(doc); err != nil {
		return false, err
	}
	if err := writeAtomic(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// writeBackup copies the original raw text under a timestamped filename.
func writeBackup(path string, raw []byte, backupDir string) (string, error) {
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(path), "backups")
	}
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := os.WriteFile(backupPath, raw, 0600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backupPath, nil
}

// writeAtomic serializes doc to a temp file in the target directory, syncs,
// then renames over the destination. A reader never observes a partial
// file and a crash mid-write leaves either the old or the new content.
func writeAtomic(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".wsltoast-settings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync settings: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to chmod settings: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	success = true
	return nil
}
