package infra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

const (
	// CacheTTL is how long a cached probe result stays valid.
	CacheTTL = 24 * time.Hour

	reachabilityTimeout = 10 * time.Second
	moduleQueryTimeout  = 15 * time.Second
)

// probe is one entry in the fixed check battery.
type probe struct {
	name   domain.CheckName
	fatal  bool
	remedy string
	run    func(ctx context.Context) (passed bool, message string, err error)
}

// Checker runs the dependency probe battery sequentially, caching results
// per probe with a time-based expiry.
type Checker struct {
	shell     domain.HostShell
	cache     domain.CheckCache
	wsl       *WSLDetector
	claudeDir string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewChecker creates a checker with production defaults.
func NewChecker(shell domain.HostShell, cache domain.CheckCache, logger *zap.Logger) *Checker {
	return &Checker{
		shell:     shell,
		cache:     cache,
		wsl:       NewWSLDetector(),
		claudeDir: GlobalClaudeDir(),
		ttl:       CacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// NewCheckerWithDeps creates a checker with injected collaborators (for
// testing).
func NewCheckerWithDeps(shell domain.HostShell, cache domain.CheckCache, wsl *WSLDetector, claudeDir string, ttl time.Duration, logger *zap.Logger) *Checker {
	return &Checker{
		shell:     shell,
		cache:     cache,
		wsl:       wsl,
		claudeDir: claudeDir,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source (for cache expiry tests).
func (c *Checker) SetClock(now func() time.Time) {
	c.now = now
}

// CheckAll runs every probe in fixed order. Unexpired cached results are
// served unless forceRefresh is set. All results, cached and fresh, are
// persisted back to the cache; a cache save failure is reported but does
// not fail the batch.
func (c *Checker) CheckAll(ctx context.Context, forceRefresh bool) (*domain.CheckSummary, error) {
	cached := map[domain.CheckName]domain.CheckResult{}
	if !forceRefresh {
		cached = c.cache.Load()
	}

	summary := &domain.CheckSummary{}
	toSave := map[domain.CheckName]domain.CheckResult{}

	for _, p := range c.probes() {
		if prior, ok := cached[p.name]; ok && !prior.Expired(c.ttl, c.now()) {
			if c.logger != nil {
				c.logger.Debug("serving probe from cache", zap.String("probe", string(p.name)))
			}
			summary.Results = append(summary.Results, prior)
			toSave[p.name] = prior
			continue
		}

		result := c.runProbe(ctx, p)
		summary.Results = append(summary.Results, result)
		toSave[p.name] = result
	}

	if err := c.cache.Save(toSave); err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to save check cache", zap.Error(err))
		}
	}
	return summary, nil
}

// runProbe executes one probe, converting any failure or panic into a
// CheckResult so a broken probe cannot abort the batch.
func (c *Checker) runProbe(ctx context.Context, p probe) (result domain.CheckResult) {
	result = domain.CheckResult{
		Name:      p.name,
		Fatal:     p.fatal,
		Remedy:    p.remedy,
		Timestamp: c.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Fatal = true
			result.Message = fmt.Sprintf("probe panicked: %v", r)
		}
	}()

	passed, message, err := p.run(ctx)
	if err != nil {
		result.Passed = false
		result.Fatal = true
		result.Message = err.Error()
		return result
	}

	result.Passed = passed
	result.Message = message
	if passed {
		result.Remedy = ""
	}
	return result
}

// probes returns the fixed battery, leaves first. Order is part of the
// contract: CheckAll results match this order.
func (c *Checker) probes() []probe {
	return []probe{
		{
			name:   domain.CheckWSL,
			fatal:  true,
			remedy: "Run this tool inside WSL. See https://learn.microsoft.com/windows/wsl/install",
			run: func(ctx context.Context) (bool, string, error) {
				if c.wsl.IsWSL() {
					return true, "running inside WSL", nil
				}
				return false, "kernel does not identify as WSL", nil
			},
		},
		{
			name:   domain.CheckPowerShell,
			fatal:  true,
			remedy: "Ensure Windows interop is enabled (check [interop] in /etc/wsl.conf) and powershell.exe is reachable",
			run: func(ctx context.Context) (bool, string, error) {
				if !c.shell.Available() {
					return false, "powershell.exe not found", nil
				}
				result, err := c.shell.Run(ctx, `Write-Output "ok"`, reachabilityTimeout)
				if err != nil {
					return false, "", err
				}
				if result.ExitCode != 0 {
					return false, fmt.Sprintf("powershell exited with code %d", result.ExitCode), nil
				}
				return true, "powershell.exe reachable", nil
			},
		},
		{
			name:   domain.CheckBurntToast,
			fatal:  true,
			remedy: "Install the BurntToast module: Install-Module -Name BurntToast -Scope CurrentUser",
			run: func(ctx context.Context) (bool, string, error) {
				result, err := c.shell.Run(ctx, burntToastVersionScript, moduleQueryTimeout)
				if err != nil {
					return false, "", err
				}
				version := strings.TrimSpace(result.Stdout)
				if result.ExitCode != 0 || version == "" {
					return false, "BurntToast module not installed", nil
				}
				return true, fmt.Sprintf("BurntToast %s installed", version), nil
			},
		},
		{
			name:   domain.CheckWSLPath,
			fatal:  false,
			remedy: "Install the wslpath utility (ships with WSL); icon path translation will be skipped without it",
			run: func(ctx context.Context) (bool, string, error) {
				if _, err := exec.LookPath("wslpath"); err != nil {
					return false, "wslpath not found in PATH", nil
				}
				return true, "wslpath available", nil
			},
		},
		{
			name:   domain.CheckClaudeDir,
			fatal:  false,
			remedy: "Install Claude Code first; hooks will not fire until " + claudeDirName + " exists",
			run: func(ctx context.Context) (bool, string, error) {
				if _, err := os.Stat(c.claudeDir); err != nil {
					return false, fmt.Sprintf("%s does not exist", c.claudeDir), nil
				}
				return true, "Claude directory present", nil
			},
		},
	}
}

// Ensure Checker implements domain.DependencyChecker.
var _ domain.DependencyChecker = (*Checker)(nil)
