package infra

import (
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// WSLDetector decides whether the process runs inside WSL.
// Detection uses the kernel version string, a signal that cannot be absent
// or spoofed the way WSL_* environment variables can. Both WSL1 and WSL2
// kernels embed "microsoft" in their release string.
type WSLDetector struct {
	procVersionPath string
	useHostInfo     bool
}

// NewWSLDetector creates a detector reading the real kernel identity.
func NewWSLDetector() *WSLDetector {
	return &WSLDetector{procVersionPath: "/proc/version", useHostInfo: true}
}

// NewWSLDetectorWithProcPath creates a detector with a custom proc file
// and no live host lookup (for testing).
func NewWSLDetectorWithProcPath(path string) *WSLDetector {
	return &WSLDetector{procVersionPath: path}
}

// IsWSL reports whether the kernel identifies as a WSL kernel.
func (d *WSLDetector) IsWSL() bool {
	if d.useHostInfo {
		if info, err := host.Info(); err == nil && isWSLKernel(info.KernelVersion) {
			return true
		}
	}

	// Fallback: read /proc/version directly. gopsutil may be unable to
	// gather full host info in restricted environments.
	data, err := os.ReadFile(d.procVersionPath)
	if err != nil {
		return false
	}
	return isWSLKernel(string(data))
}

func isWSLKernel(version string) bool {
	v := strings.ToLower(version)
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}
