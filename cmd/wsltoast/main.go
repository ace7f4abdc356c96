// Package main is the CLI entry point for wsltoast.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/wsl-toast/internal/domain"
	"github.com/eliteGoblin/wsl-toast/internal/infra"
	"github.com/eliteGoblin/wsl-toast/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "1.0.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wsltoast",
	Short: "Windows toast notifications for Claude Code running in WSL",
	Long: `wsltoast bridges Claude Code hook events inside WSL to native Windows
toast notifications. It installs a small shell script and wires it into
Claude Code's settings so that notification and stop events pop a toast
via PowerShell and the BurntToast module.`,
	Version: Version,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the notification bridge",
	Long: `Checks the environment (WSL, PowerShell, BurntToast), installs the
show-toast.sh runtime script and adds hook entries to Claude Code's
settings file. Existing settings are preserved; a timestamped backup is
taken before any modification.

If BurntToast is missing you will be offered a one-command auto-install
scoped to the current Windows user (no admin rights needed).`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the notification bridge",
	Long: `Removes the hook entries this tool added to Claude Code's settings
(entries added by other tools are left untouched) and deletes the
installed files. The BurntToast PowerShell module is not removed.`,
	RunE: runUninstall,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the environment",
	Long:  `Runs every dependency check and reports the results with remediation hints. Use --json for machine-readable output.`,
	RunE:  runDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	flagProject bool
	flagSync    bool
	flagHooks   []string
	flagQuiet   bool
	flagForce   bool
	flagDryRun  bool
	flagNoCache bool
	flagDebug   bool
	jsonOutput  bool
)

func init() {
	installCmd.Flags().BoolVar(&flagProject, "project", false, "Install for the current project instead of globally")
	installCmd.Flags().BoolVar(&flagSync, "sync", false, "With --project, write settings.json (shared) instead of settings.local.json")
	installCmd.Flags().StringSliceVar(&flagHooks, "hooks", []string{"notification", "stop"}, "Hook types to install")
	installCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "No prompts; assume yes for BurntToast auto-install")
	installCmd.Flags().BoolVar(&flagForce, "force", false, "Proceed despite failed environment checks (BurntToast excepted)")
	installCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Show what would be done without changing anything")
	installCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Ignore cached check results")
	installCmd.Flags().BoolVar(&flagDebug, "debug", false, "Verbose logging")

	uninstallCmd.Flags().BoolVar(&flagProject, "project", false, "Uninstall the current project's installation")
	uninstallCmd.Flags().BoolVar(&flagSync, "sync", false, "With --project, target settings.json instead of settings.local.json")
	uninstallCmd.Flags().BoolVar(&flagDebug, "debug", false, "Verbose logging")

	doctorCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Ignore cached check results")
	doctorCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output check results as JSON")
	doctorCmd.Flags().BoolVar(&flagDebug, "debug", false, "Verbose logging")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func parseHooks(names []string) ([]domain.HookType, error) {
	hooks := make([]domain.HookType, 0, len(names))
	for _, name := range names {
		switch domain.HookType(strings.TrimSpace(name)) {
		case domain.HookNotification:
			hooks = append(hooks, domain.HookNotification)
		case domain.HookStop:
			hooks = append(hooks, domain.HookStop)
		default:
			return nil, fmt.Errorf("unknown hook type %q (valid: notification, stop)", name)
		}
	}
	if len(hooks) == 0 {
		return nil, fmt.Errorf("at least one hook type is required")
	}
	return hooks, nil
}

func scope() domain.InstallScope {
	if flagProject {
		return domain.ScopeProject
	}
	return domain.ScopeGlobal
}

// buildEngine wires the production dependency graph.
func buildEngine(logger *zap.Logger) *usecase.Engine {
	shell := infra.NewPowerShell(logger)
	cache := infra.NewFileCheckCache(infra.DefaultCacheDir(), logger)
	checker := infra.NewChecker(shell, cache, logger)
	module := infra.NewBurntToastInstaller(shell, logger)
	script := infra.NewShowToastScript(shell)
	return usecase.NewEngine(Version, checker, module, script, promptConsent, logger)
}

// promptConsent asks on the terminal whether BurntToast may be installed.
func promptConsent(status *domain.BurntToastStatus) bool {
	fmt.Println("\nThe BurntToast PowerShell module is required but not ready:")
	for _, issue := range status.Issues {
		fmt.Printf("  - %s\n", issue)
	}
	fmt.Println("\nIt can be installed for your Windows user with:")
	fmt.Println("  Install-Module -Name BurntToast -Scope CurrentUser")
	fmt.Print("\nInstall it now? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runInstall(cmd *cobra.Command, args []string) error {
	logger := createLogger(flagDebug)
	defer func() { _ = logger.Sync() }()

	hooks, err := parseHooks(flagHooks)
	if err != nil {
		return err
	}

	cfg := domain.InstallConfig{
		Scope:   scope(),
		Sync:    flagSync,
		Hooks:   hooks,
		Quiet:   flagQuiet,
		Force:   flagForce,
		NoCache: flagNoCache,
	}

	paths, err := infra.ResolveScopePaths(cfg.Scope, cfg.Sync)
	if err != nil {
		return fmt.Errorf("failed to resolve install paths: %w", err)
	}

	engine := buildEngine(logger)

	if flagDryRun {
		plan := engine.Plan(cfg, paths)
		fmt.Println("\n=== Dry Run ===")
		fmt.Printf("Scope:         %s\n", cfg.Scope)
		fmt.Printf("Install dir:   %s\n", plan.InstallDir)
		fmt.Printf("Script:        %s\n", plan.ScriptPath)
		fmt.Printf("Settings file: %s\n", plan.SettingsPath)
		fmt.Println("Hook entries:")
		for _, hook := range hooks {
			fmt.Printf("  %s: %s\n", hook, plan.HookCommands[hook])
		}
		fmt.Println("\nNo changes made.")
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := engine.Install(ctx, cfg, paths)
	if err != nil {
		return err
	}

	fmt.Println("\n=== wsltoast Installed ===")
	fmt.Printf("Scope:         %s\n", cfg.Scope)
	fmt.Printf("Script:        %s\n", result.Plan.ScriptPath)
	fmt.Printf("Settings file: %s\n", result.Plan.SettingsPath)
	if result.BackupPath != "" {
		fmt.Printf("Backup:        %s\n", result.BackupPath)
	}
	if !result.SettingsChanged {
		fmt.Println("Settings were already up to date.")
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s: %s\n", warning.Name, warning.Message)
		if warning.Remedy != "" {
			fmt.Printf("         %s\n", warning.Remedy)
		}
	}
	fmt.Println("\nClaude Code will now pop Windows toasts on hook events.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	logger := createLogger(flagDebug)
	defer func() { _ = logger.Sync() }()

	cfg := domain.InstallConfig{
		Scope: scope(),
		Sync:  flagSync,
	}

	paths, err := infra.ResolveScopePaths(cfg.Scope, cfg.Sync)
	if err != nil {
		return fmt.Errorf("failed to resolve install paths: %w", err)
	}

	engine := buildEngine(logger)
	result, err := engine.Uninstall(cfg, paths)
	if err != nil {
		return err
	}

	fmt.Println("\n=== wsltoast Removed ===")
	if len(result.HooksRemoved) > 0 {
		names := make([]string, 0, len(result.HooksRemoved))
		for _, hook := range result.HooksRemoved {
			names = append(names, string(hook))
		}
		fmt.Printf("Hooks removed: %s\n", strings.Join(names, ", "))
	} else {
		fmt.Println("No hook entries found in settings.")
	}
	if result.FilesDeleted {
		fmt.Printf("Deleted %s\n", paths.InstallDir)
	}
	fmt.Println("The BurntToast PowerShell module was left installed.")
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	logger := createLogger(flagDebug)
	defer func() { _ = logger.Sync() }()

	shell := infra.NewPowerShell(logger)
	cache := infra.NewFileCheckCache(infra.DefaultCacheDir(), logger)
	checker := infra.NewChecker(shell, cache, logger)

	ctx, cancel := signalContext()
	defer cancel()

	summary, err := checker.CheckAll(ctx, flagNoCache)
	if err != nil {
		return fmt.Errorf("checks failed to run: %w", err)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(summary.Results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Println("\n=== Environment Checks ===")
		for _, result := range summary.Results {
			mark := "PASS"
			if !result.Passed {
				mark = "WARN"
				if result.Fatal {
					mark = "FAIL"
				}
			}
			fmt.Printf("[%s] %-12s %s\n", mark, result.Name, result.Message)
			if !result.Passed && result.Remedy != "" {
				fmt.Printf("       fix: %s\n", result.Remedy)
			}
		}
		fmt.Printf("\nCache: %s\n", cache.Path())
		fmt.Println("==========================")
	}

	if !summary.Passed() {
		os.Exit(1)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func createLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("wsltoast %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
