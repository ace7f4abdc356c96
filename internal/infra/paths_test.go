package infra

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

func TestResolveScopePathsWithBase(t *testing.T) {
	base := "/home/u/.claude"

	tests := []struct {
		name         string
		scope        domain.InstallScope
		sync         bool
		wantSettings string
	}{
		{
			name:         "global",
			scope:        domain.ScopeGlobal,
			sync:         true,
			wantSettings: filepath.Join(base, "settings.json"),
		},
		{
			name:         "project synced targets shared settings",
			scope:        domain.ScopeProject,
			sync:         true,
			wantSettings: filepath.Join(base, "settings.json"),
		},
		{
			name:         "project unsynced targets local settings",
			scope:        domain.ScopeProject,
			sync:         false,
			wantSettings: filepath.Join(base, "settings.local.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := ResolveScopePathsWithBase(tt.scope, tt.sync, base)

			assert.Equal(t, tt.scope, paths.Scope)
			assert.Equal(t, filepath.Join(base, "hooks", "wsl-toast"), paths.InstallDir)
			assert.Equal(t, tt.wantSettings, paths.SettingsPath)
			assert.Equal(t, filepath.Join(base, "backups"), paths.BackupDir)
		})
	}
}

func TestResolveScopePaths_GlobalIgnoresSyncFlag(t *testing.T) {
	base := "/home/u/.claude"
	synced := ResolveScopePathsWithBase(domain.ScopeGlobal, true, base)
	unsynced := ResolveScopePathsWithBase(domain.ScopeGlobal, false, base)
	assert.Equal(t, synced.SettingsPath, unsynced.SettingsPath)
}
