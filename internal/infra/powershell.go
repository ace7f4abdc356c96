// Package infra implements infrastructure concerns (host shell, probes,
// cache, runtime script).
package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

// Well-known powershell.exe locations inside WSL when PATH interop is
// disabled.
var powerShellFallbackPaths = []string{
	"/mnt/c/Windows/System32/WindowsPowerShell/v1.0/powershell.exe",
	"/mnt/c/Program Files/PowerShell/7/pwsh.exe",
}

// PowerShell implements domain.HostShell by invoking powershell.exe across
// the WSL boundary.
type PowerShell struct {
	exePath string
	logger  *zap.Logger
}

// NewPowerShell locates powershell.exe and returns the adapter. The
// returned shell may be unavailable; callers probe via Available.
func NewPowerShell(logger *zap.Logger) *PowerShell {
	exePath, err := exec.LookPath("powershell.exe")
	if err != nil {
		for _, candidate := range powerShellFallbackPaths {
			if _, lookErr := exec.LookPath(candidate); lookErr == nil {
				exePath = candidate
				break
			}
		}
	}
	return &PowerShell{exePath: exePath, logger: logger}
}

// NewPowerShellWithPath creates an adapter for a specific executable (for
// testing with a stub script).
func NewPowerShellWithPath(exePath string, logger *zap.Logger) *PowerShell {
	return &PowerShell{exePath: exePath, logger: logger}
}

// Available reports whether a powershell executable was found.
func (p *PowerShell) Available() bool {
	return p.exePath != ""
}

// ExePath returns the resolved powershell executable path.
func (p *PowerShell) ExePath() string {
	return p.exePath
}

// Run executes a script through powershell.exe with a bounded timeout.
// A hang on the Windows boundary must not hang the CLI, so the deadline is
// enforced via context; on expiry the call fails like any other execution
// failure and is never retried here.
func (p *PowerShell) Run(ctx context.Context, script string, timeout time.Duration) (*domain.ShellResult, error) {
	if p.exePath == "" {
		return nil, fmt.Errorf("powershell.exe not found in PATH or known locations")
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.exePath,
		"-NoProfile", "-NonInteractive", "-Command", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("powershell command timed out after %s", timeout)
	}

	result := &domain.ShellResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit is a result, not an execution failure.
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run powershell: %w", err)
		}
	}

	if p.logger != nil {
		p.logger.Debug("powershell command finished",
			zap.Int("exit_code", result.ExitCode),
			zap.Int("stdout_len", len(result.Stdout)),
			zap.Int("stderr_len", len(result.Stderr)))
	}

	return result, nil
}

// Ensure PowerShell implements domain.HostShell.
var _ domain.HostShell = (*PowerShell)(nil)
