// Package domain contains core entities and interfaces for the WSL toast
// bridge. This is the innermost layer - no external dependencies.
package domain

import "time"

// HookType identifies a Claude Code extension point the bridge hooks into.
type HookType string

const (
	HookNotification HookType = "notification"
	HookStop         HookType = "stop"
)

// AllHookTypes lists the hook types the installer knows about, in the
// order they are installed.
var AllHookTypes = []HookType{HookNotification, HookStop}

// InstallScope selects where artifacts and settings live.
type InstallScope string

const (
	// ScopeGlobal installs under the per-user Claude configuration
	// directory and targets the global settings file.
	ScopeGlobal InstallScope = "global"
	// ScopeProject installs under .claude in the current working
	// directory and targets the project settings file.
	ScopeProject InstallScope = "project"
)

// CheckName is the stable identifier of a dependency probe.
type CheckName string

const (
	CheckWSL        CheckName = "wsl"
	CheckPowerShell CheckName = "powershell"
	CheckBurntToast CheckName = "burnttoast"
	CheckWSLPath    CheckName = "wslpath"
	CheckClaudeDir  CheckName = "claude-dir"
)

// AllCheckNames lists every probe in battery order.
var AllCheckNames = []CheckName{
	CheckWSL,
	CheckPowerShell,
	CheckBurntToast,
	CheckWSLPath,
	CheckClaudeDir,
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Name      CheckName `json:"name"`
	Passed    bool      `json:"passed"`
	Fatal     bool      `json:"fatal"`
	Message   string    `json:"message,omitempty"`
	Remedy    string    `json:"remedy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the result is older than ttl and must be
// treated as a cache miss.
func (r CheckResult) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(r.Timestamp) > ttl
}

// CheckSummary aggregates a full probe run.
type CheckSummary struct {
	Results []CheckResult
}

// FatalFailures returns the failed results that block installation.
func (s CheckSummary) FatalFailures() []CheckResult {
	var fatal []CheckResult
	for _, r := range s.Results {
		if !r.Passed && r.Fatal {
			fatal = append(fatal, r)
		}
	}
	return fatal
}

// Warnings returns the failed results that do not block installation.
func (s CheckSummary) Warnings() []CheckResult {
	var warnings []CheckResult
	for _, r := range s.Results {
		if !r.Passed && !r.Fatal {
			warnings = append(warnings, r)
		}
	}
	return warnings
}

// Passed reports whether no fatal probe failed.
func (s CheckSummary) Passed() bool {
	return len(s.FatalFailures()) == 0
}

// ShellResult is the outcome of one host automation shell invocation.
type ShellResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// BurntToastStatus aggregates the module's installation posture. All four
// sub-checks run regardless of individual failures so the caller sees the
// full picture before deciding whether auto-install is feasible.
type BurntToastStatus struct {
	Installed       bool
	Version         string
	CanConnect      bool
	ExecutionPolicy string
	Issues          []string
}

// InstallConfig captures one install invocation's effective settings.
type InstallConfig struct {
	Scope InstallScope `json:"scope"`
	// Sync selects the shared settings file for project scope; when false
	// the local-only settings file is targeted instead. Ignored for
	// global scope.
	Sync  bool       `json:"sync"`
	Hooks []HookType `json:"hooks"`
	// Quiet pre-authorizes prompts, including BurntToast auto-install.
	Quiet bool `json:"quiet,omitempty"`
	// Force proceeds past fatal probe failures, except the BurntToast
	// probe which cannot be bypassed.
	Force bool `json:"force,omitempty"`
	// NoCache reruns every dependency probe, ignoring cached results.
	NoCache bool `json:"-"`
}

// Manifest records what an install did, enabling precise reversal.
// Written last: its existence is the signal that installation completed.
type Manifest struct {
	Version        string        `json:"version"`
	InstalledAt    time.Time     `json:"installedAt"`
	Config         InstallConfig `json:"config"`
	Files          []string      `json:"files"`
	SettingsPath   string        `json:"settingsPath"`
	HooksInstalled []HookType    `json:"hooksInstalled"`
}

// ScopePaths holds every path one install scope touches. Resolution lives
// in infra; the engine only consumes the result.
type ScopePaths struct {
	Scope InstallScope
	// ClaudeDir is the Claude base directory for this scope.
	ClaudeDir string
	// InstallDir receives the runtime script and manifest.
	InstallDir string
	// SettingsPath is the merge target.
	SettingsPath string
	// BackupDir receives pre-merge settings backups.
	BackupDir string
}

// InstallPlan is what a dry run reports: every path and command an install
// would touch, with no filesystem mutation performed.
type InstallPlan struct {
	InstallDir   string
	ScriptPath   string
	SettingsPath string
	HookCommands map[HookType]string
}

// InstallResult reports a completed installation.
type InstallResult struct {
	Plan            InstallPlan
	SettingsChanged bool
	BackupPath      string
	Warnings        []CheckResult
}

// UninstallResult reports which hook types were actually removed, as
// opposed to merely attempted.
type UninstallResult struct {
	HooksRemoved    []HookType
	SettingsChanged bool
	FilesDeleted    bool
}
