package infra

import (
	"os"
	"path/filepath"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

const (
	claudeDirName  = ".claude"
	installDirName = "wsl-toast"
	hooksDirName   = "hooks"
)

// ResolveScopePaths computes install locations for the requested scope.
// Global installs root at the per-user Claude directory; project installs
// root at the working directory, with the sync flag selecting the shared
// settings.json over the untracked settings.local.json.
func ResolveScopePaths(scope domain.InstallScope, sync bool) (*domain.ScopePaths, error) {
	var base string
	switch scope {
	case domain.ScopeProject:
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(cwd, claudeDirName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, claudeDirName)
	}
	return resolveWithBase(scope, sync, base), nil
}

// ResolveScopePathsWithBase computes paths under a caller-supplied Claude
// directory (for testing with temp directories).
func ResolveScopePathsWithBase(scope domain.InstallScope, sync bool, claudeDir string) *domain.ScopePaths {
	return resolveWithBase(scope, sync, claudeDir)
}

func resolveWithBase(scope domain.InstallScope, sync bool, claudeDir string) *domain.ScopePaths {
	settingsName := "settings.json"
	if scope == domain.ScopeProject && !sync {
		settingsName = "settings.local.json"
	}
	return &domain.ScopePaths{
		Scope:        scope,
		ClaudeDir:    claudeDir,
		InstallDir:   filepath.Join(claudeDir, hooksDirName, installDirName),
		SettingsPath: filepath.Join(claudeDir, settingsName),
		BackupDir:    filepath.Join(claudeDir, "backups"),
	}
}

// GlobalClaudeDir returns the per-user Claude base directory.
func GlobalClaudeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, claudeDirName)
}
