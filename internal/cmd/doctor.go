package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/backend"
	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the system and suggest fixes for common issues.

Examples:
  nimbusbridge doctor                  # Checks for the configured provider
  nimbusbridge doctor --provider file  # Checks for the file provider`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if cfg == nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration not loaded", fmt.Errorf("run through the root command"))
	}

	bannerName := "doctor"
	if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
		bannerName = identity.BinaryName + " doctor"
	}
	observability.CLILogger.Info("=== " + bannerName + " ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 4

	s3Provider := provider.ProviderType(cfg.Provider) == provider.ProviderS3
	if s3Provider {
		totalChecks = 6
	}

	// Check 1: Go version
	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking Go version... ✅ %s", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
	} else {
		observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", checkNum, totalChecks, goVersion),
			zap.String("go_version", goVersion))
		allChecks = false
	}
	checkNum++

	// Check 2: Config directory
	configDir, err := os.UserConfigDir()
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking config directory... ❌ Cannot find config directory", checkNum, totalChecks),
			zap.Error(err))
		allChecks = false
	} else {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking config directory... ✅ %s", checkNum, totalChecks, configDir),
			zap.String("config_dir", configDir))
	}
	checkNum++

	// Check 3: Environment
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))
	checkNum++

	// Check 4: Storage client
	if !checkStorageClient(cfg, checkNum, totalChecks) {
		allChecks = false
	}
	checkNum++

	if s3Provider {
		if !runS3Checks(cmd.Context(), cfg.S3, checkNum, totalChecks) {
			allChecks = false
		}
	}

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", bannerName))
	} else {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")

	if !allChecks {
		return exitError(foundry.ExitExternalServiceUnavailable, "doctor found problems", fmt.Errorf("some checks failed"))
	}
	return nil
}

// checkStorageClient creates and destroys one client through the bridge.
func checkStorageClient(cfg *config.Config, checkNum, totalChecks int) bool {
	b := bridge.New(backend.Factory(cfg), observability.CLILogger.Named("bridge"))
	h, st := b.CreateClientWithStatus()
	if st != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking storage client... ❌ %s", checkNum, totalChecks, st.Message()),
			zap.String("provider", cfg.Provider),
			zap.Stringer("code", st.Code()))
		return false
	}
	b.DestroyClient(h)
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking storage client... ✅ %s", checkNum, totalChecks, cfg.Provider),
		zap.String("provider", cfg.Provider))
	return true
}

// runS3Checks runs S3-specific diagnostic checks.
func runS3Checks(ctx context.Context, s3cfg config.S3Config, checkNum, totalChecks int) bool {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("S3 Provider Checks:")

	if s3cfg.AccessKeyID != "" {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Static credentials from config", checkNum, totalChecks),
			zap.String("access_key", maskAccessKey(s3cfg.AccessKeyID)))
		checkNum++
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking credential source... ✅ nimbusbridge config", checkNum, totalChecks))
		return true
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s3cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s3cfg.Profile))
	}
	if s3cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s3cfg.Region))
	}

	// Check 5: AWS credentials
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot load AWS config", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking AWS credentials... ❌ Cannot retrieve credentials", checkNum, totalChecks),
			zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking AWS credentials... ✅ Found credentials", checkNum, totalChecks),
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", creds.Source))
	checkNum++

	// Check 6: Credential source info
	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking credential source... ✅ %s", checkNum, totalChecks, source),
		zap.String("credential_source", source))

	return true
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure AWS credentials:")
	observability.CLILogger.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	observability.CLILogger.Info("  2. Set s3.access_key_id and s3.secret_access_key in the nimbusbridge config, or")
	observability.CLILogger.Info("  3. Run 'aws configure' to set up a profile (s3.profile), or")
	observability.CLILogger.Info("  4. Use IAM role when running on AWS infrastructure")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("For S3-compatible storage (MinIO, moto, etc.), also set:")
	observability.CLILogger.Info("  - NIMBUSBRIDGE_S3_ENDPOINT and NIMBUSBRIDGE_S3_FORCE_PATH_STYLE=true")
	observability.CLILogger.Info("")
}
