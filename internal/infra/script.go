package infra

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
)

// ScriptFileName is the runtime notification script placed in the install
// directory. Its invocation strings are what gets merged into settings.
const ScriptFileName = "show-toast.sh"

// scriptPerm is user-execute-and-read only. No group/world access, and no
// owner write after install.
const scriptPerm = 0500

// showToastTemplate is the runtime script. It is a thin forwarding
// wrapper: it selects default title/message from the hook discriminator
// flag and shells the toast out to the Windows side. The wire protocol to
// BurntToast is fixed; this tool only places the file and builds the
// invocation strings.
const showToastTemplate = `#!/usr/bin/env bash
# Installed by wsltoast. Do not edit; re-run 'wsltoast install' to update.
set -euo pipefail

POWERSHELL="{{.PowerShellPath}}"
TITLE="Claude Code"
MESSAGE="Notification"

while [[ $# -gt 0 ]]; do
  case "$1" in
    --notification-hook)
      TITLE="Claude Code"
      MESSAGE="Claude needs your attention"
      shift
      ;;
    --stop-hook)
      TITLE="Claude Code"
      MESSAGE="Claude has finished responding"
      shift
      ;;
    --title)
      TITLE="$2"
      shift 2
      ;;
    --message)
      MESSAGE="$2"
      shift 2
      ;;
    *)
      shift
      ;;
  esac
done

"$POWERSHELL" -NoProfile -NonInteractive -Command \
  "Import-Module BurntToast; New-BurntToastNotification -Text '$TITLE', '$MESSAGE'" >/dev/null 2>&1 &
`

type scriptConfig struct {
	PowerShellPath string
}

// ShowToastScript implements domain.ScriptManager. It renders the runtime
// script for the resolved powershell path so the installed artifact works
// without PATH interop, and detects drift against the expected content on
// re-install.
type ShowToastScript struct {
	powerShellPath string
}

// NewShowToastScript creates a script manager using the given shell's
// resolved executable path, defaulting to plain "powershell.exe" when the
// shell has not been located.
func NewShowToastScript(shell *PowerShell) *ShowToastScript {
	path := shell.ExePath()
	if path == "" {
		path = "powershell.exe"
	}
	return &ShowToastScript{powerShellPath: path}
}

// NewShowToastScriptWithPath creates a script manager for an explicit
// powershell path (for testing).
func NewShowToastScriptWithPath(powerShellPath string) *ShowToastScript {
	return &ShowToastScript{powerShellPath: powerShellPath}
}

// ScriptName returns the installed script's file name.
func (s *ShowToastScript) ScriptName() string {
	return ScriptFileName
}

// render produces the script content for the configured powershell path.
func (s *ShowToastScript) render() ([]byte, error) {
	tmpl, err := template.New("show-toast").Parse(showToastTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, scriptConfig{PowerShellPath: s.powerShellPath}); err != nil {
		return nil, fmt.Errorf("failed to render script: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the script into dir atomically with user-execute-only
// permissions and returns its path.
func (s *ShowToastScript) Install(dir string) (string, error) {
	content, err := s.render()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create install directory: %w", err)
	}

	scriptPath := filepath.Join(dir, ScriptFileName)

	tmpFile, err := os.CreateTemp(dir, ".wsltoast-script-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to sync script: %w", err)
	}
	tmpFile.Close()

	if err := os.Chmod(tmpPath, scriptPerm); err != nil {
		return "", fmt.Errorf("failed to set script permissions: %w", err)
	}
	if err := os.Rename(tmpPath, scriptPath); err != nil {
		return "", fmt.Errorf("failed to install script: %w", err)
	}

	success = true
	return scriptPath, nil
}

// NeedsUpdate reports whether the script is missing or its content has
// drifted from what Install would write.
func (s *ShowToastScript) NeedsUpdate(dir string) bool {
	current, err := os.ReadFile(filepath.Join(dir, ScriptFileName))
	if err != nil {
		return true
	}
	expected, err := s.render()
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

// Ensure ShowToastScript implements domain.ScriptManager.
var _ domain.ScriptManager = (*ShowToastScript)(nil)
