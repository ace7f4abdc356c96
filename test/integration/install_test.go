//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
	"github.com/eliteGoblin/wsl-toast/internal/infra"
	"github.com/eliteGoblin/wsl-toast/internal/usecase"
	"github.com/eliteGoblin/wsl-toast/test/fixtures"
)

const wslKernel = "Linux version 5.15.167.4-microsoft-standard-WSL2 (root@build) #1 SMP"

var _ = Describe("Install lifecycle", func() {
	var (
		tmpDir    string
		claudeDir string
		shell     *fixtures.FakeShell
		engine    *usecase.Engine
		paths     *domain.ScopePaths
		cfg       domain.InstallConfig
		consented bool
	)

	readSettings := func() map[string]any {
		data, err := os.ReadFile(paths.SettingsPath)
		Expect(err).NotTo(HaveOccurred())
		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		return doc
	}

	hookEntries := func(doc map[string]any, hookType string) []any {
		hooks, _ := doc["hooks"].(map[string]any)
		arr, _ := hooks[hookType].([]any)
		return arr
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "wsltoast-integration-*")
		Expect(err).NotTo(HaveOccurred())

		claudeDir = filepath.Join(tmpDir, ".claude")
		Expect(os.MkdirAll(claudeDir, 0755)).To(Succeed())

		procPath := filepath.Join(tmpDir, "proc_version")
		Expect(os.WriteFile(procPath, []byte(wslKernel), 0600)).To(Succeed())

		shell = fixtures.NewFakeShell()
		shell.Respond(`Write-Output "ok"`, fixtures.ShellResponse{Stdout: "ok\n"})
		shell.Respond("Get-Module -ListAvailable -Name BurntToast",
			fixtures.ShellResponse{Stdout: "0.8.5\n"})

		logger := zap.NewNop()
		cache := infra.NewFileCheckCache(filepath.Join(tmpDir, "cache"), logger)
		checker := infra.NewCheckerWithDeps(shell, cache,
			infra.NewWSLDetectorWithProcPath(procPath), claudeDir, infra.CacheTTL, logger)
		module := infra.NewBurntToastInstaller(shell, logger)
		script := infra.NewShowToastScriptWithPath("powershell.exe")

		consented = false
		engine = usecase.NewEngine("1.0.0", checker, module, script,
			func(*domain.BurntToastStatus) bool { consented = true; return true }, logger)

		paths = infra.ResolveScopePathsWithBase(domain.ScopeGlobal, false, claudeDir)
		cfg = domain.InstallConfig{
			Scope: domain.ScopeGlobal,
			Hooks: domain.AllHookTypes,
		}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("fresh install", func() {
		It("places the script, wires the hooks and writes a manifest", func() {
			result, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SettingsChanged).To(BeTrue())

			info, err := os.Stat(result.Plan.ScriptPath)
			Expect(err).NotTo(HaveOccurred())
			if runtime.GOOS != "windows" {
				Expect(info.Mode().Perm()).To(Equal(os.FileMode(0500)))
			}

			doc := readSettings()
			Expect(hookEntries(doc, "notification")).To(HaveLen(1))
			Expect(hookEntries(doc, "stop")).To(HaveLen(1))
			Expect(hookEntries(doc, "notification")[0]).To(
				ContainSubstring("show-toast.sh --notification-hook"))

			Expect(engine.IsInstalled(paths)).To(BeTrue())
		})

		It("is idempotent on a second run", func() {
			_, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())

			second, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.SettingsChanged).To(BeFalse())

			doc := readSettings()
			Expect(hookEntries(doc, "notification")).To(HaveLen(1))
		})

		It("preserves user settings and backs the file up", func() {
			existing := `{
			  // user settings with comments
			  "model": "opus",
			  "hooks": {"stop": ["other-tool --done"]}
			}`
			Expect(os.WriteFile(paths.SettingsPath, []byte(existing), 0600)).To(Succeed())

			result, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.BackupPath).NotTo(BeEmpty())

			backup, err := os.ReadFile(result.BackupPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(backup)).To(Equal(existing))

			doc := readSettings()
			Expect(doc["model"]).To(Equal("opus"))
			Expect(hookEntries(doc, "stop")).To(HaveLen(2))
			Expect(hookEntries(doc, "stop")[0]).To(Equal("other-tool --done"))
		})
	})

	Describe("BurntToast remediation", func() {
		BeforeEach(func() {
			// Module absent at first; the install flow makes it appear.
			shell.Respond("Get-Module -ListAvailable -Name BurntToast",
				fixtures.ShellResponse{Stdout: ""})
			shell.Respond("Install-Module -Name BurntToast",
				fixtures.ShellResponse{Stdout: ""})
			shell.Respond("Get-Command New-BurntToastNotification",
				fixtures.ShellResponse{Stdout: "verified\n"})
			shell.Respond("Test-Connection", fixtures.ShellResponse{Stdout: "True\n"})
			shell.Respond("Get-ExecutionPolicy", fixtures.ShellResponse{Stdout: "RemoteSigned\n"})
		})

		It("asks for consent, installs and verifies the module", func() {
			_, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(consented).To(BeTrue())
			Expect(shell.CallCount("Install-Module -Name BurntToast")).To(Equal(1))
			Expect(engine.IsInstalled(paths)).To(BeTrue())
		})

		It("surfaces category-specific remediation when the install fails", func() {
			shell.Respond("Install-Module -Name BurntToast", fixtures.ShellResponse{
				ExitCode: 1,
				Stderr:   "Install-Module : execution of scripts is disabled on this system.",
			})

			_, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("execution of scripts is disabled"))
			Expect(err.Error()).To(ContainSubstring("Set-ExecutionPolicy -ExecutionPolicy RemoteSigned -Scope CurrentUser"))
			Expect(engine.IsInstalled(paths)).To(BeFalse())
		})
	})

	Describe("uninstall", func() {
		It("returns settings to their pre-install state", func() {
			existing := `{"hooks": {"notification": ["other-tool --notify"]}}`
			Expect(os.WriteFile(paths.SettingsPath, []byte(existing), 0600)).To(Succeed())

			_, err := engine.Install(context.Background(), cfg, paths)
			Expect(err).NotTo(HaveOccurred())

			result, err := engine.Uninstall(cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HooksRemoved).To(ConsistOf(domain.HookNotification, domain.HookStop))
			Expect(result.FilesDeleted).To(BeTrue())

			doc := readSettings()
			Expect(hookEntries(doc, "notification")).To(Equal([]any{"other-tool --notify"}))
			_, hasStop := doc["hooks"].(map[string]any)["stop"]
			Expect(hasStop).To(BeFalse())

			_, err = os.Stat(paths.InstallDir)
			Expect(os.IsNotExist(err)).To(BeTrue())
			Expect(engine.IsInstalled(paths)).To(BeFalse())
		})

		It("tolerates uninstalling when nothing is installed", func() {
			result, err := engine.Uninstall(cfg, paths)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HooksRemoved).To(BeEmpty())
			Expect(result.FilesDeleted).To(BeFalse())
		})
	})
})
