package domain

import (
	"context"
	"time"
)

// HostShell runs a script through the Windows automation shell.
// The only IPC with the host is a command string in, UTF-8 text and an
// exit code out. Implementation: powershell.exe via os/exec; tests use a
// fake.
type HostShell interface {
	// Run executes script with a bounded timeout. A non-zero exit code is
	// not an error; err is reserved for execution failures (binary not
	// found, timeout, context canceled).
	Run(ctx context.Context, script string, timeout time.Duration) (*ShellResult, error)

	// Available reports whether the shell executable can be located at all.
	Available() bool
}

// CheckCache persists probe results between invocations so repeated runs
// inside the TTL window skip the OS round-trip.
type CheckCache interface {
	// Load returns the cached results keyed by probe name. A missing or
	// corrupt cache file yields an empty map, never an error.
	Load() map[CheckName]CheckResult

	// Save overwrites the cache atomically with the given results.
	Save(results map[CheckName]CheckResult) error

	// Path returns the cache file location (for status output and tests).
	Path() string
}

// DependencyChecker runs the fixed probe battery.
type DependencyChecker interface {
	// CheckAll runs every probe in a fixed order, serving unexpired
	// cached results unless forceRefresh is set. A failing probe never
	// aborts the batch.
	CheckAll(ctx context.Context, forceRefresh bool) (*CheckSummary, error)
}

// ModuleInstaller remediates the BurntToast probe.
// Consent is caller-mediated: InstallationStatus is a pure query, Install
// performs the side effect, Verify settles the outcome definitively.
type ModuleInstaller interface {
	// InstallationStatus aggregates installed state, version, gallery
	// connectivity and execution-policy posture into one report.
	InstallationStatus(ctx context.Context) (*BurntToastStatus, error)

	// Install installs the module scoped to the current user. Never
	// requests elevation.
	Install(ctx context.Context) error

	// Verify checks the module loads and the notification command is
	// actually callable. Load success alone is not proof.
	Verify(ctx context.Context) (bool, error)
}

// RemediableError is an error that carries user-facing remediation
// instructions beyond its message. Callers surface Remediation() whenever
// an operation fails with one; the text must stand on its own without the
// caller knowing the failure category.
type RemediableError interface {
	error
	Remediation() string
}

// ScriptManager places and inspects the runtime notification script.
type ScriptManager interface {
	// Install writes the script into dir with user-execute-only
	// permissions. Returns the script path.
	Install(dir string) (string, error)

	// NeedsUpdate reports whether the script at dir is missing or its
	// content differs from what Install would write.
	NeedsUpdate(dir string) bool

	// ScriptName returns the installed script's file name.
	ScriptName() string
}
