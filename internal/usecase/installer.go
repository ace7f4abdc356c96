// Package usecase contains application business logic.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
	"github.com/eliteGoblin/wsl-toast/internal/settings"
)

// ManifestFileName is written into the install directory as the last
// install step; its presence signals a completed installation.
const ManifestFileName = "install.json"

// ConsentFunc asks the user whether BurntToast may be auto-installed.
// The engine never installs the module without an affirmative answer.
type ConsentFunc func(status *domain.BurntToastStatus) bool

// Engine orchestrates installation: pre-flight checks, optional module
// remediation, artifact placement, hook injection, manifest bookkeeping
// and the reverse of all of it.
//
// It is also the error aggregation boundary: collaborators' errors are
// wrapped into results with actionable text, never re-thrown raw.
type Engine struct {
	version string
	checker domain.DependencyChecker
	module  domain.ModuleInstaller
	script  domain.ScriptManager
	consent ConsentFunc
	logger  *zap.Logger
}

// NewEngine creates an installer engine.
func NewEngine(
	version string,
	checker domain.DependencyChecker,
	module domain.ModuleInstaller,
	script domain.ScriptManager,
	consent ConsentFunc,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		version: version,
		checker: checker,
		module:  module,
		script:  script,
		consent: consent,
		logger:  logger,
	}
}

// Plan computes every path and command an install would touch. Pure: the
// same paths always produce the same plan, which is what makes uninstall
// able to reconstruct hook commands without extra state.
func (e *Engine) Plan(cfg domain.InstallConfig, paths *domain.ScopePaths) domain.InstallPlan {
	plan := domain.InstallPlan{
		InstallDir:   paths.InstallDir,
		ScriptPath:   filepath.Join(paths.InstallDir, e.script.ScriptName()),
		SettingsPath: paths.SettingsPath,
		HookCommands: map[domain.HookType]string{},
	}
	for _, hook := range cfg.Hooks {
		plan.HookCommands[hook] = e.hookCommand(paths.InstallDir, hook)
	}
	return plan
}

// hookCommand derives the shell invocation string for one hook type.
// Deterministic in the install dir and hook type only.
func (e *Engine) hookCommand(installDir string, hook domain.HookType) string {
	return fmt.Sprintf("%s --%s-hook", filepath.Join(installDir, e.script.ScriptName()), hook)
}

// Install runs the full installation sequence. The manifest is written
// only after every other step succeeded, so a partial failure leaves no
// manifest and "is it installed" stays conservative.
func (e *Engine) Install(ctx context.Context, cfg domain.InstallConfig, paths *domain.ScopePaths) (*domain.InstallResult, error) {
	plan := e.Plan(cfg, paths)
	result := &domain.InstallResult{Plan: plan}

	summary, overridden, err := e.preflight(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Force-overridden fatal failures are still reported, as warnings.
	result.Warnings = append(summary.Warnings(), overridden...)

	// Files + permissions. Skipped when the script on disk already matches
	// what would be generated.
	if e.script.NeedsUpdate(paths.InstallDir) {
		scriptPath, err := e.script.Install(paths.InstallDir)
		if err != nil {
			return nil, fmt.Errorf("failed to install runtime script: %w", err)
		}
		e.logger.Info("runtime script installed", zap.String("path", scriptPath))
	}

	// Hook injection through the settings merger.
	update := map[string]any{}
	for _, hook := range cfg.Hooks {
		update = settings.Merge(update, settings.HookUpdate(string(hook), plan.HookCommands[hook]), settings.MergeOptions{})
	}
	mergeResult, err := settings.MergeFile(paths.SettingsPath, update, settings.FileOptions{
		CreateBackup: true,
		BackupDir:    paths.BackupDir,
		Force:        cfg.Force,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	result.SettingsChanged = mergeResult.Changed
	result.BackupPath = mergeResult.BackupPath

	// Manifest last.
	manifest := domain.Manifest{
		Version:        e.version,
		InstalledAt:    time.Now(),
		Config:         cfg,
		Files:          []string{e.script.ScriptName()},
		SettingsPath:   paths.SettingsPath,
		HooksInstalled: cfg.Hooks,
	}
	if err := writeManifest(paths.InstallDir, manifest); err != nil {
		return nil, err
	}

	e.logger.Info("installation complete",
		zap.String("scope", string(cfg.Scope)),
		zap.String("install_dir", paths.InstallDir),
		zap.Bool("settings_changed", result.SettingsChanged))
	return result, nil
}

// preflight runs the dependency battery and applies the force/remediation
// policy. The BurntToast failure is the one fatal result force cannot
// bypass: without the module the whole system is non-functional. Fatal
// failures overridden by force stay reported, returned as the second
// value.
func (e *Engine) preflight(ctx context.Context, cfg domain.InstallConfig) (*domain.CheckSummary, []domain.CheckResult, error) {
	summary, err := e.checker.CheckAll(ctx, cfg.NoCache)
	if err != nil {
		return nil, nil, fmt.Errorf("dependency checks failed to run: %w", err)
	}

	fatal := summary.FatalFailures()
	if len(fatal) == 0 {
		return summary, nil, nil
	}

	remaining := make([]domain.CheckResult, 0, len(fatal))
	for _, failure := range fatal {
		if failure.Name == domain.CheckBurntToast {
			if err := e.remediateBurntToast(ctx, cfg, failure.Remedy); err != nil {
				return nil, nil, fmt.Errorf("BurntToast module is required: %w", err)
			}
			continue
		}
		remaining = append(remaining, failure)
	}

	if len(remaining) == 0 {
		return summary, nil, nil
	}
	if cfg.Force {
		for _, failure := range remaining {
			e.logger.Warn("fatal dependency check overridden by --force",
				zap.String("probe", string(failure.Name)),
				zap.String("message", failure.Message))
		}
		return summary, remaining, nil
	}

	lines := make([]string, 0, len(remaining))
	for _, failure := range remaining {
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", failure.Name, failure.Message, failure.Remedy))
	}
	return nil, nil, fmt.Errorf("dependency checks failed:\n  %s", strings.Join(lines, "\n  "))
}

// remediateBurntToast attempts the consent-gated auto-install. A nil
// return means the module is verified working; any failure comes back
// with remediation instructions attached, category-specific when the
// installer classified the failure.
func (e *Engine) remediateBurntToast(ctx context.Context, cfg domain.InstallConfig, remedy string) error {
	status, err := e.module.InstallationStatus(ctx)
	if err != nil {
		return fmt.Errorf("could not determine module status: %v; %s", err, remedy)
	}

	if status.Installed {
		// The probe may have been served from a stale environment; trust
		// a verified module over the probe.
		if ok, _ := e.module.Verify(ctx); ok {
			return nil
		}
	}

	consented := cfg.Quiet || (e.consent != nil && e.consent(status))
	if !consented {
		e.logger.Info("BurntToast auto-install declined")
		return fmt.Errorf("auto-install declined; %s", remedy)
	}

	if err := e.module.Install(ctx); err != nil {
		e.logger.Warn("BurntToast auto-install failed", zap.Error(err))
		var remediable domain.RemediableError
		if errors.As(err, &remediable) {
			return fmt.Errorf("auto-install failed: %v\n%s", err, remediable.Remediation())
		}
		return fmt.Errorf("auto-install failed: %v; %s", err, remedy)
	}

	// Installation never ends ambiguous: verify settles it.
	ok, err := e.module.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verification failed after install: %v; %s", err, remedy)
	}
	if !ok {
		return fmt.Errorf("module installed but the notification command is unavailable; %s", remedy)
	}
	return nil
}

// Uninstall reverses an installation. A missing manifest is tolerated:
// hook commands are recomputed from the install path, which is possible
// because their derivation is pure.
func (e *Engine) Uninstall(cfg domain.InstallConfig, paths *domain.ScopePaths) (*domain.UninstallResult, error) {
	result := &domain.UninstallResult{}

	hooks := cfg.Hooks
	settingsPath := paths.SettingsPath
	if manifest, err := readManifest(paths.InstallDir); err == nil && manifest != nil {
		hooks = manifest.HooksInstalled
		if manifest.SettingsPath != "" {
			settingsPath = manifest.SettingsPath
		}
	} else {
		e.logger.Debug("no manifest found, removing recomputed hook commands")
		if len(hooks) == 0 {
			hooks = domain.AllHookTypes
		}
	}

	changed, err := settings.UpdateFile(settingsPath, func(doc map[string]any) bool {
		removed := false
		for _, hook := range hooks {
			command := e.hookCommand(paths.InstallDir, hook)
			if settings.RemoveHookCommand(doc, string(hook), command) {
				result.HooksRemoved = append(result.HooksRemoved, hook)
				removed = true
			}
		}
		return removed
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	result.SettingsChanged = changed

	if _, statErr := os.Stat(paths.InstallDir); statErr == nil {
		if err := os.RemoveAll(paths.InstallDir); err != nil {
			return nil, fmt.Errorf("failed to remove install directory: %w", err)
		}
		result.FilesDeleted = true
	}

	e.logger.Info("uninstall complete",
		zap.Int("hooks_removed", len(result.HooksRemoved)),
		zap.Bool("files_deleted", result.FilesDeleted))
	return result, nil
}

// IsInstalled reports whether a manifest exists for the given paths.
func (e *Engine) IsInstalled(paths *domain.ScopePaths) bool {
	manifest, err := readManifest(paths.InstallDir)
	return err == nil && manifest != nil
}

// writeManifest persists the manifest into the install directory.
func writeManifest(installDir string, manifest domain.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}
	path := filepath.Join(installDir, ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// readManifest loads the manifest, returning nil without error when none
// exists.
func readManifest(installDir string) (*domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(installDir, ManifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("manifest is corrupt: %w", err)
	}
	return &manifest, nil
}
