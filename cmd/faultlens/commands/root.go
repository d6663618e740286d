package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/logging"
)

const Version = "0.1.0"

// NewRootCommand builds the command tree. Each call returns fresh flag
// state.
func NewRootCommand() *cobra.Command {
	var logLevelFlags []string

	rootCmd := &cobra.Command{
		Use:   "faultlens",
		Short: "FaultLens - transformer fault diagnosis",
		Long: `FaultLens diagnoses power transformer faults from dissolved gas analysis,
compiles n8n diagnosis workflows into logic-gate fault trees and serves both
over an HTTP API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLog(logLevelFlags)
		},
	}

	// Supports per-package log levels: --log-level debug --log-level session.store=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"warn"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level workflow.parser=debug --log-level api=warn")

	rootCmd.AddCommand(newDiagnoseCmd())
	rootCmd.AddCommand(newWorkflowCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes logging from the --log-level flags and LOG_LEVEL_*
// environment variables. Flags win over the environment.
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags, os.Environ())
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges env and CLI log levels.
//
// CLI format: ["debug"], ["default=info", "session.store=debug"]
// Env vars: LOG_LEVEL_SESSION_STORE=debug (package name uppercased, dots to underscores)
func parseLogLevelFlags(flags, environ []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range environ {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		parts := strings.SplitN(envPair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[convertEnvKeyToPackageName(parts[0])] = parts[1]
	}

	for _, flag := range flags {
		pkg, level, found := strings.Cut(flag, "=")
		if !found {
			result["default"] = flag
			continue
		}
		result[pkg] = level
	}

	defaultLevel := "warn"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if _, err := logging.ParseLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if _, err := logging.ParseLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_SESSION_STORE -> session.store
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}
