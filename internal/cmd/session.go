package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/3leaps/nimbusbridge/internal/backend"
	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/output"
)

// drainTimeout bounds how long a command waits for stray operations on exit.
const drainTimeout = 30 * time.Second

// session is one command's view of the bridge: a single client handle and
// the JSONL writer its results go to.
type session struct {
	bridge   *bridge.Bridge
	client   bridge.ClientHandle
	out      output.Writer
	provider string
}

// openSession builds a bridge from the loaded configuration. A non-empty
// providerName (usually the URI scheme) overrides the configured provider.
func openSession(cmd *cobra.Command, providerName string) (*session, error) {
	loaded := config.GetConfig()
	if loaded == nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Configuration not loaded", fmt.Errorf("run through the root command"))
	}
	cfg := *loaded
	if providerName != "" {
		cfg.Provider = providerName
	}

	b := bridge.New(backend.Factory(&cfg), observability.CLILogger.Named("bridge"))
	h, st := b.CreateClientWithStatus()
	if st != nil {
		observability.CLILogger.Error("Failed to create client",
			zap.String("provider", cfg.Provider),
			zap.Stringer("code", st.Code()),
			zap.String("error", st.Message()))
		return nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", st.Err())
	}

	return &session{
		bridge:   b,
		client:   h,
		out:      output.NewJSONLWriter(cmd.OutOrStdout(), uuid.NewString(), cfg.Provider),
		provider: cfg.Provider,
	}, nil
}

// Close destroys the client and waits for in-flight operations.
func (s *session) Close() {
	_ = s.out.Close()
	s.bridge.DestroyClient(s.client)

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.bridge.Drain(ctx); err != nil {
		observability.CLILogger.Warn("Operations still running at exit", zap.Error(err))
	}
}

// awaitBucket submits one operation and waits for its envelope. If ctx ends
// first, the envelope is freed when it eventually arrives.
func (s *session) awaitBucket(ctx context.Context, submit func(bridge.BucketCallback)) (bridge.BucketEnvelope, error) {
	ch := make(chan bridge.BucketEnvelope, 1)
	submit(func(env bridge.BucketEnvelope) { ch <- env })
	select {
	case env := <-ch:
		return env, nil
	case <-ctx.Done():
		go func() { s.bridge.FreeBucketEnvelope(<-ch) }()
		return bridge.BucketEnvelope{}, ctx.Err()
	}
}

// target names what an error record refers to.
type target struct {
	bucket string
	object string
	path   string
}

// emitObject writes env as an object record, or as an error record when it
// carries a failure, and releases it. The failure is returned as a status
// error.
func (s *session) emitObject(ctx context.Context, env bridge.ObjectEnvelope, t target) (*output.ObjectRecord, error) {
	defer s.bridge.FreeObjectEnvelope(env)

	if !s.bridge.IsObjectOk(env) {
		err := s.statusError(env.Status)
		s.writeError(ctx, err, t)
		return nil, err
	}
	rec := objectRecord(s.bridge, env)
	if err := s.out.WriteObject(ctx, rec); err != nil {
		return rec, exitError(foundry.ExitFileWriteError, "Failed to write record", err)
	}
	return rec, nil
}

// emitBucket is emitObject for bucket envelopes.
func (s *session) emitBucket(ctx context.Context, env bridge.BucketEnvelope, t target) (*output.BucketRecord, error) {
	defer s.bridge.FreeBucketEnvelope(env)

	if !s.bridge.IsBucketOk(env) {
		err := s.statusError(env.Status)
		s.writeError(ctx, err, t)
		return nil, err
	}
	rec := bucketRecord(s.bridge, env)
	if err := s.out.WriteBucket(ctx, rec); err != nil {
		return rec, exitError(foundry.ExitFileWriteError, "Failed to write record", err)
	}
	return rec, nil
}

// statusError rebuilds the failure held by a status handle.
func (s *session) statusError(h handle.Handle) error {
	msg, ok := s.bridge.StatusMessage(h)
	code := s.bridge.StatusCode(h)
	if !ok || code == codes.OK {
		return status.Error(codes.Internal, "result carries no status")
	}
	return status.Error(code, msg)
}

func (s *session) writeError(ctx context.Context, err error, t target) {
	st := status.Convert(err)
	rec := &output.ErrorRecord{
		Code:    output.ErrorCode(st.Code()),
		Message: st.Message(),
		Bucket:  t.bucket,
		Object:  t.object,
		Path:    t.path,
	}
	if werr := s.out.WriteError(ctx, rec); werr != nil {
		observability.CLILogger.Debug("Failed to emit error record", zap.Error(werr))
	}
}
