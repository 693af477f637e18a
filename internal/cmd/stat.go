package cmd

import (
	"fmt"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

var statCmd = &cobra.Command{
	Use:   "stat <uri>...",
	Short: "Fetch object metadata",
	Long: `Fetch metadata for one or more objects.

All lookups run concurrently. Each result is a nimbusbridge.object.v1 record;
failed lookups are nimbusbridge.error.v1 records and the command exits
non-zero.

Examples:
  nimbusbridge stat s3://media/clips/a.mp4
  nimbusbridge stat s3://media/a s3://media/b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

type statResult struct {
	env bridge.ObjectEnvelope
	uri *ObjectURI
}

func runStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	targets := make([]*ObjectURI, 0, len(args))
	for _, arg := range args {
		parsed, err := ParseURI(arg)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
		}
		if parsed.IsPrefix() {
			return exitError(foundry.ExitInvalidArgument, "stat requires an exact object name", fmt.Errorf("no object in %s", arg))
		}
		if len(targets) > 0 && parsed.Provider != targets[0].Provider {
			return exitError(foundry.ExitInvalidArgument, "Mixed providers", fmt.Errorf("%s and %s", targets[0].Provider, parsed.Provider))
		}
		targets = append(targets, parsed)
	}

	s, err := openSession(cmd, targets[0].Provider)
	if err != nil {
		return err
	}
	defer s.Close()

	envs := make(chan statResult, len(targets))

	var wg sync.WaitGroup
	for _, u := range targets {
		wg.Add(1)
		s.bridge.GetObjectMetadata(s.client, u.Bucket, u.Key, func(env bridge.ObjectEnvelope) {
			defer wg.Done()
			envs <- statResult{env: env, uri: u}
		})
	}
	go func() {
		wg.Wait()
		close(envs)
	}()

	var failed int
	for r := range envs {
		if _, err := s.emitObject(ctx, r.env, target{bucket: r.uri.Bucket, object: r.uri.Key}); err != nil {
			failed++
			observability.CLILogger.Debug("stat failed", zap.String("uri", r.uri.String()), zap.Error(err))
		}
	}

	if failed > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable, "stat completed with errors", fmt.Errorf("errors=%d", failed))
	}
	return nil
}
