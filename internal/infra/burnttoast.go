package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

const (
	// MinBurntToastVersion is the oldest module version the runtime
	// script is known to work with.
	MinBurntToastVersion = "0.8.0"

	galleryHost    = "www.powershellgallery.com"
	installTimeout = 90 * time.Second
	verifyTimeout  = 30 * time.Second

	burntToastVersionScript = `$m = Get-Module -ListAvailable -Name BurntToast | Sort-Object Version -Descending | Select-Object -First 1; if ($m) { $m.Version.ToString() }`

	burntToastInstallScript = `Install-Module -Name BurntToast -Scope CurrentUser -Force -AllowClobber`

	burntToastVerifyScript = `Import-Module BurntToast -ErrorAction Stop; if (Get-Command New-BurntToastNotification -ErrorAction SilentlyContinue) { Write-Output "verified" } else { Write-Output "command-missing" }`
)

// InstallFailureCategory classifies a failed module installation so the
// CLI can print specific remediation text.
type InstallFailureCategory string

const (
	FailureGalleryUnreachable InstallFailureCategory = "gallery-unreachable"
	FailurePolicyRestricted   InstallFailureCategory = "execution-policy"
	FailureElevationRequired  InstallFailureCategory = "elevation-required"
	FailureGeneric            InstallFailureCategory = "generic"
)

// InstallError is a categorized BurntToast installation failure.
type InstallError struct {
	Category InstallFailureCategory
	Message  string
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	return fmt.Sprintf("BurntToast install failed (%s): %s", e.Category, e.Message)
}

// Remediation returns actionable instructions for this failure category.
func (e *InstallError) Remediation() string {
	switch e.Category {
	case FailureGalleryUnreachable:
		return "The PowerShell Gallery is unreachable. Check your network or proxy settings.\n" + manualInstallInstructions
	case FailurePolicyRestricted:
		return "Script execution is disabled on the Windows host. In an elevated PowerShell run:\n" +
			"  Set-ExecutionPolicy -ExecutionPolicy RemoteSigned -Scope CurrentUser\n" +
			"then re-run the installer."
	case FailureElevationRequired:
		return "The install attempted to write outside the user scope. Re-run without sudo/admin;\n" +
			"the module is always installed with -Scope CurrentUser and must not require elevation.\n" +
			"If a machine policy forces AllUsers scope, ask your administrator or use the manual path below.\n" +
			manualInstallInstructions
	default:
		return manualInstallInstructions
	}
}

const manualInstallInstructions = `Manual installation:
  1. Open Windows PowerShell (not as administrator)
  2. Run: Install-Module -Name BurntToast -Scope CurrentUser
  3. Answer 'Y' to any repository trust prompt
Offline / corporate environments:
  1. On a connected machine: Save-Module -Name BurntToast -Path C:\Temp
  2. Copy the BurntToast folder into Documents\WindowsPowerShell\Modules
  3. Verify with: Get-Module -ListAvailable BurntToast`

// BurntToastInstaller implements domain.ModuleInstaller through the host
// shell. Consent stays with the caller: status query, install and verify
// are separate calls and install is never invoked implicitly.
type BurntToastInstaller struct {
	shell      domain.HostShell
	minVersion *semver.Version
	logger     *zap.Logger
}

// NewBurntToastInstaller creates an installer bound to the given shell.
func NewBurntToastInstaller(shell domain.HostShell, logger *zap.Logger) *BurntToastInstaller {
	min := semver.MustParse(MinBurntToastVersion)
	return &BurntToastInstaller{shell: shell, minVersion: min, logger: logger}
}

// InstallationStatus performs four independent sub-checks and merges them
// into one report instead of failing fast.
func (b *BurntToastInstaller) InstallationStatus(ctx context.Context) (*domain.BurntToastStatus, error) {
	status := &domain.BurntToastStatus{}

	// Sub-check 1+2: installed state and version.
	if result, err := b.shell.Run(ctx, burntToastVersionScript, moduleQueryTimeout); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("could not query module state: %v", err))
	} else {
		version := strings.TrimSpace(result.Stdout)
		if result.ExitCode == 0 && version != "" {
			status.Installed = true
			status.Version = version
			if v, parseErr := semver.NewVersion(version); parseErr == nil && v.LessThan(b.minVersion) {
				status.Issues = append(status.Issues,
					fmt.Sprintf("BurntToast %s is older than the minimum supported %s", version, MinBurntToastVersion))
			}
		} else {
			status.Issues = append(status.Issues, "BurntToast module is not installed")
		}
	}

	// Sub-check 3: PowerShell Gallery connectivity, probed from the
	// Windows side since that is where Install-Module runs.
	connScript := fmt.Sprintf(`Test-Connection -ComputerName %s -Count 1 -Quiet`, galleryHost)
	if result, err := b.shell.Run(ctx, connScript, reachabilityTimeout); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("could not probe PowerShell Gallery: %v", err))
	} else if strings.EqualFold(strings.TrimSpace(result.Stdout), "true") {
		status.CanConnect = true
	} else {
		status.Issues = append(status.Issues, "PowerShell Gallery ("+galleryHost+") is unreachable")
	}

	// Sub-check 4: execution policy posture.
	if result, err := b.shell.Run(ctx, `Get-ExecutionPolicy`, reachabilityTimeout); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("could not query execution policy: %v", err))
	} else {
		status.ExecutionPolicy = strings.TrimSpace(result.Stdout)
		switch status.ExecutionPolicy {
		case "Restricted", "AllSigned":
			status.Issues = append(status.Issues,
				fmt.Sprintf("execution policy %q blocks module scripts", status.ExecutionPolicy))
		}
	}

	if b.logger != nil {
		b.logger.Debug("burnttoast status",
			zap.Bool("installed", status.Installed),
			zap.String("version", status.Version),
			zap.Bool("can_connect", status.CanConnect),
			zap.String("execution_policy", status.ExecutionPolicy),
			zap.Strings("issues", status.Issues))
	}
	return status, nil
}

// Install installs the module scoped to the current user. It never
// requests elevation; an elevation demand from the host is surfaced as a
// categorized error. Warning-only stderr does not fail the install.
func (b *BurntToastInstaller) Install(ctx context.Context) error {
	result, err := b.shell.Run(ctx, burntToastInstallScript, installTimeout)
	if err != nil {
		return &InstallError{Category: categorizeFailure(err.Error()), Message: err.Error()}
	}

	realErrors := filterWarnings(result.Stderr)
	if result.ExitCode == 0 && realErrors == "" {
		return nil
	}

	message := realErrors
	if message == "" {
		message = fmt.Sprintf("installer exited with code %d", result.ExitCode)
	}
	return &InstallError{Category: categorizeFailure(message), Message: message}
}

// Verify settles the installation question definitively: the module must
// import cleanly and the notification command must be resolvable.
func (b *BurntToastInstaller) Verify(ctx context.Context) (bool, error) {
	result, err := b.shell.Run(ctx, burntToastVerifyScript, verifyTimeout)
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		return false, nil
	}
	return strings.Contains(result.Stdout, "verified"), nil
}

// filterWarnings drops warning-tagged and empty stderr lines, returning
// only genuine error text. Install-Module routinely emits warnings on
// success; naive presence-of-stderr checks produce false negatives.
func filterWarnings(stderr string) string {
	var errors []string
	for _, line := range strings.Split(stderr, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(trimmed), "WARNING") {
			continue
		}
		errors = append(errors, trimmed)
	}
	return strings.Join(errors, "\n")
}

// categorizeFailure maps failure text onto a remediation category.
func categorizeFailure(message string) InstallFailureCategory {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "unable to resolve package source"),
		strings.Contains(lower, "no match was found"),
		strings.Contains(lower, "could not be downloaded"),
		strings.Contains(lower, "timed out"):
		return FailureGalleryUnreachable
	case strings.Contains(lower, "execution of scripts is disabled"),
		strings.Contains(lower, "unauthorizedaccess"),
		strings.Contains(lower, "execution policy"):
		return FailurePolicyRestricted
	case strings.Contains(lower, "administrator"),
		strings.Contains(lower, "elevat"),
		strings.Contains(lower, "access to the path") && strings.Contains(lower, "denied"):
		return FailureElevationRequired
	default:
		return FailureGeneric
	}
}

// Ensure BurntToastInstaller implements domain.ModuleInstaller.
var _ domain.ModuleInstaller = (*BurntToastInstaller)(nil)

var _ domain.RemediableError = (*InstallError)(nil)
