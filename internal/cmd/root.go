// Package cmd implements the nimbusbridge command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/internal/server/handlers"
)

var (
	cfgFile      string
	providerFlag string
	logLevel     string
	verbose      bool

	appIdentity *config.Identity

	versionInfo = struct {
		Version   string
		Commit    string
		BuildDate string
	}{
		Version:   "dev",
		Commit:    "none",
		BuildDate: "unknown",
	}
)

var rootCmd = &cobra.Command{
	Use:   "nimbusbridge",
	Short: "Object storage bridge with a C ABI",
	Long: `nimbusbridge exposes an object storage client through a handle based
C ABI (libnimbusbridge). This command line drives the same bridge for
scripting, diagnostics and the admin HTTP server.

Results are JSONL records on stdout; logs go to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/nimbusbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "storage provider (s3|file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose CLI output")
}

// SetVersionInfo records build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// GetAppIdentity returns the identity resolved at startup, or nil before
// the root command has run.
func GetAppIdentity() *config.Identity {
	return appIdentity
}

// setDefaults applies configuration defaults to the global viper instance.
func setDefaults() {
	config.SetDefaults(viper.GetViper())
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	observability.InitCLILogger(config.DefaultIdentity.BinaryName, verbose)

	if cfgFile != "" {
		if err := os.Setenv(config.DefaultIdentity.EnvPrefix+"_CONFIG", cfgFile); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid --config value", err)
		}
	}

	overrides := map[string]any{}
	if providerFlag != "" {
		overrides["provider"] = providerFlag
	}
	if logLevel != "" {
		overrides["logging"] = map[string]any{"level": logLevel}
	}

	if _, err := config.Load(cmd.Context(), overrides); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
	}
	appIdentity = config.GetIdentity()

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("provider", config.GetConfig().Provider),
		zap.String("log_level", config.GetConfig().Logging.Level))
	return nil
}

// ExitCodeError carries a process exit code alongside the failure.
type ExitCodeError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

func exitError(code int, message string, err error) error {
	return &ExitCodeError{Code: code, Message: message, Err: err}
}

// ExitWithCode logs the failure and terminates the process.
func ExitWithCode(logger *zap.Logger, code int, message string, err error) {
	logger.Error(message, zap.Error(err), zap.Int("exit_code", code))
	_ = logger.Sync()
	os.Exit(code)
}

// exitCode extracts the exit code carried by err, defaulting to 1.
func exitCode(err error) int {
	var coded *ExitCodeError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return 1
}

// Execute runs the root command and exits with the code of any failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ExitWithCode(observability.CLILogger, exitCode(err), "Command failed", err)
	}
}
