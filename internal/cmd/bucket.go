package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Create and inspect buckets",
}

var bucketCreateCmd = &cobra.Command{
	Use:   "create <uri>",
	Short: "Create a bucket",
	Long: `Create a bucket and emit its metadata as a nimbusbridge.bucket.v1 record.

Examples:
  nimbusbridge bucket create s3://media
  nimbusbridge bucket create s3://media --location eu-west-1 --versioning
  nimbusbridge bucket create file://media --label team=video`,
	Args: cobra.ExactArgs(1),
	RunE: runBucketCreate,
}

var bucketStatCmd = &cobra.Command{
	Use:   "stat <uri>",
	Short: "Fetch bucket metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runBucketStat,
}

var (
	bucketLocation     string
	bucketStorageClass string
	bucketLabels       map[string]string
	bucketVersioning   bool
	bucketObjectLock   bool
)

func init() {
	rootCmd.AddCommand(bucketCmd)
	bucketCmd.AddCommand(bucketCreateCmd)
	bucketCmd.AddCommand(bucketStatCmd)

	bucketCreateCmd.Flags().StringVar(&bucketLocation, "location", "", "Bucket location or region")
	bucketCreateCmd.Flags().StringVar(&bucketStorageClass, "storage-class", "", "Default storage class")
	bucketCreateCmd.Flags().StringToStringVar(&bucketLabels, "label", nil, "Bucket label key=value (repeatable)")
	bucketCreateCmd.Flags().BoolVar(&bucketVersioning, "versioning", false, "Enable object versioning")
	bucketCreateCmd.Flags().BoolVar(&bucketObjectLock, "object-lock", false, "Enable object retention support")
}

func parseBucketURI(uri string) (*ObjectURI, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid URI", err)
	}
	if parsed.Key != "" {
		return nil, exitError(foundry.ExitInvalidArgument, "Bucket URI must not name an object", fmt.Errorf("unexpected object %q in %s", parsed.Key, uri))
	}
	return parsed, nil
}

func runBucketCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	parsed, err := parseBucketURI(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd, parsed.Provider)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := bridge.BucketOptions{
		Location:     bucketLocation,
		StorageClass: bucketStorageClass,
		Labels:       bucketLabels,
		Versioning:   bucketVersioning,
		ObjectLock:   bucketObjectLock,
	}
	env, err := s.awaitBucket(ctx, func(cb bridge.BucketCallback) {
		s.bridge.CreateBucketWithOptions(s.client, parsed.Bucket, opts, cb)
	})
	if err != nil {
		return exitError(foundry.ExitSignalInt, "bucket create cancelled", err)
	}
	if _, err := s.emitBucket(ctx, env, target{bucket: parsed.Bucket}); err != nil {
		return operationFailed("bucket create failed", err)
	}
	return nil
}

func runBucketStat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	parsed, err := parseBucketURI(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd, parsed.Provider)
	if err != nil {
		return err
	}
	defer s.Close()

	env, err := s.awaitBucket(ctx, func(cb bridge.BucketCallback) {
		s.bridge.GetBucketMetadata(s.client, parsed.Bucket, cb)
	})
	if err != nil {
		return exitError(foundry.ExitSignalInt, "bucket stat cancelled", err)
	}
	if _, err := s.emitBucket(ctx, env, target{bucket: parsed.Bucket}); err != nil {
		return operationFailed("bucket stat failed", err)
	}
	return nil
}

// operationFailed maps a failed operation onto an exit code. Errors that
// already carry one pass through.
func operationFailed(message string, err error) error {
	if _, ok := err.(*ExitCodeError); ok {
		return err
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return exitError(foundry.ExitInvalidArgument, message, err)
	case codes.NotFound:
		return exitError(foundry.ExitFileNotFound, message, err)
	}
	return exitError(foundry.ExitExternalServiceUnavailable, message, err)
}
