package s3

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// Provider implements provider.Client for AWS S3 and S3-compatible storage.
type Provider struct {
	client   *s3.Client
	uploader *manager.Uploader
	limiter  *rate.Limiter

	region    string
	endpoint  string
	pathStyle bool
}

// Ensure Provider implements the interface.
var _ provider.Client = (*Provider)(nil)

// New creates a new S3 client with the given configuration.
//
// The client uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Err:      err,
		}
	}

	// Build S3 client options
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSizeMB > 0 {
			u.PartSize = cfg.PartSizeMB * 1024 * 1024
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
	})

	p := &Provider{
		client:    client,
		uploader:  uploader,
		region:    awsCfg.Region,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		pathStyle: cfg.ForcePathStyle,
	}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return p, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set profile if specified
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Apply region defaulting logic
	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// CreateBucket creates a bucket, applies labels and versioning, and returns
// the resulting bucket metadata.
func (p *Provider) CreateBucket(ctx context.Context, name string, opts provider.BucketOptions) (*provider.BucketMeta, error) {
	if err := provider.ValidateBucketName(name); err != nil {
		return nil, p.wrapError("CreateBucket", name, "", err)
	}
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("CreateBucket", name, "", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	location := opts.Location
	if location == "" {
		location = p.region
	}
	// us-east-1 must not be sent as a location constraint.
	if location != "" && location != DefaultAWSRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(location),
		}
	}
	if opts.ObjectLock {
		input.ObjectLockEnabledForBucket = aws.Bool(true)
	}

	if _, err := p.client.CreateBucket(ctx, input); err != nil {
		return nil, p.wrapError("CreateBucket", name, "", err)
	}

	if len(opts.Labels) > 0 {
		_, err := p.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
			Bucket:  aws.String(name),
			Tagging: &types.Tagging{TagSet: tagsFromLabels(opts.Labels)},
		})
		if err != nil {
			return nil, p.wrapError("PutBucketTagging", name, "", err)
		}
	}

	if opts.Versioning {
		_, err := p.client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket: aws.String(name),
			VersioningConfiguration: &types.VersioningConfiguration{
				Status: types.BucketVersioningStatusEnabled,
			},
		})
		if err != nil {
			return nil, p.wrapError("PutBucketVersioning", name, "", err)
		}
	}

	meta, err := p.GetBucketMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	if opts.StorageClass != "" {
		meta.StorageClass = opts.StorageClass
	}
	return meta, nil
}

// GetBucketMetadata returns bucket metadata.
//
// HeadBucket decides existence. Versioning, tags, ACL, object lock and
// creation time are optional sub-records fetched best effort: a failure there
// leaves the field absent rather than failing the operation.
func (p *Provider) GetBucketMetadata(ctx context.Context, bucket string) (*provider.BucketMeta, error) {
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("GetBucketMetadata", bucket, "", err)
	}

	head, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		wrapped := p.wrapError("GetBucketMetadata", bucket, "", err)
		var provErr *provider.ProviderError
		if provider.IsNotFound(wrapped) && errors.As(wrapped, &provErr) {
			provErr.Err = provider.ErrBucketNotFound
		}
		return nil, wrapped
	}

	meta := &provider.BucketMeta{
		Name:           bucket,
		ID:             bucket,
		SelfLink:       p.bucketURL(bucket),
		Location:       aws.ToString(head.BucketRegion),
		LocationType:   "region",
		StorageClass:   string(types.StorageClassStandard),
		Metageneration: 1,
	}
	if meta.Location == "" {
		meta.Location = p.region
	}

	if out, err := p.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(bucket)}); err == nil {
		meta.Versioning = out.Status == types.BucketVersioningStatusEnabled
	}
	if out, err := p.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)}); err == nil {
		meta.Labels = labelsFromTags(out.TagSet)
	}
	if out, err := p.client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)}); err == nil {
		meta.Owner = ownerFromS3(out.Owner)
		meta.ACL = aclFromGrants(out.Grants)
	}
	if out, err := p.client.GetObjectLockConfiguration(ctx, &s3.GetObjectLockConfigurationInput{Bucket: aws.String(bucket)}); err == nil {
		meta.RetentionPolicy = retentionPolicyFromLock(out.ObjectLockConfiguration)
	}
	if out, err := p.client.ListBuckets(ctx, &s3.ListBucketsInput{Prefix: aws.String(bucket)}); err == nil {
		for _, b := range out.Buckets {
			if aws.ToString(b.Name) == bucket {
				meta.TimeCreated = aws.ToTime(b.CreationDate)
				meta.Updated = meta.TimeCreated
				break
			}
		}
	}

	return meta, nil
}

// UploadFile uploads a local file using the multipart uploader.
func (p *Provider) UploadFile(ctx context.Context, path, bucket, object string) (*provider.ObjectMeta, error) {
	if err := provider.ValidateObjectName(object); err != nil {
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, p.wrapError("UploadFile", bucket, object, fmt.Errorf("%w: %s", provider.ErrNotFound, path))
		}
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}
	defer func() { _ = f.Close() }()

	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(object),
		Body:        f,
		ContentType: aws.String(contentTypeFor(path)),
	})
	if err != nil {
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}

	return p.GetObjectMetadata(ctx, bucket, object)
}

// GetObjectMetadata returns metadata for a single object.
//
// The ACL and owner come from GetObjectAcl when the principal may read it.
func (p *Provider) GetObjectMetadata(ctx context.Context, bucket, object string) (*provider.ObjectMeta, error) {
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
	}

	output, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(object),
		ChecksumMode: types.ChecksumModeEnabled,
	})
	if err != nil {
		return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
	}

	meta := objectMetaFromHead(bucket, object, output)
	meta.SelfLink = p.objectURL(bucket, object)
	meta.MediaLink = p.objectURL(bucket, object)
	if v := aws.ToString(output.VersionId); v != "" && v != "null" {
		meta.MediaLink += "?versionId=" + v
	}

	if acl, err := p.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{Bucket: aws.String(bucket), Key: aws.String(object)}); err == nil {
		meta.Owner = ownerFromS3(acl.Owner)
		meta.ACL = aclFromGrants(acl.Grants)
	}

	return meta, nil
}

// OpenWriteStream starts a streaming upload. Bytes written are piped into the
// multipart uploader running in the background.
func (p *Provider) OpenWriteStream(ctx context.Context, bucket, object string) (provider.ObjectWriter, error) {
	if err := provider.ValidateBucketName(bucket); err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	if err := provider.ValidateObjectName(object); err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	if err := p.wait(ctx); err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	return newObjectWriter(ctx, p, bucket, object), nil
}

// Close releases any resources held by the client.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (p *Provider) Close() error {
	return nil
}

// wait blocks until the client-side rate limiter admits one operation.
func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Provider) bucketURL(bucket string) string {
	switch {
	case p.endpoint != "" && p.pathStyle:
		return p.endpoint + "/" + bucket
	case p.endpoint != "":
		scheme, host, ok := strings.Cut(p.endpoint, "://")
		if !ok {
			return p.endpoint + "/" + bucket
		}
		return scheme + "://" + bucket + "." + host
	default:
		region := p.region
		if region == "" {
			region = DefaultAWSRegion
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
}

func (p *Provider) objectURL(bucket, object string) string {
	return p.bucketURL(bucket) + "/" + object
}

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	// Already classified (validation, local file errors).
	for _, sentinel := range []error{provider.ErrInvalidArgument, provider.ErrNotFound, provider.ErrAborted} {
		if errors.Is(err, sentinel) {
			return wrapped
		}
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	var alreadyExists *types.BucketAlreadyExists
	var alreadyOwned *types.BucketAlreadyOwnedByYou

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case errors.As(err, &alreadyExists), errors.As(err, &alreadyOwned):
		wrapped.Err = provider.ErrAlreadyExists
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		classified := true
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = provider.ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = provider.ErrBucketNotFound
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
			wrapped.Err = provider.ErrAlreadyExists
		case "InvalidBucketName", "InvalidArgument", "InvalidLocationConstraint":
			wrapped.Err = provider.ErrInvalidArgument
		case "AccessDenied", "Forbidden":
			wrapped.Err = provider.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = provider.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = provider.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = provider.ErrProviderUnavailable
		default:
			classified = false
		}
		// Keep the backend's message next to the sentinel.
		if classified && apiErr.ErrorMessage() != "" {
			wrapped.Err = fmt.Errorf("%w: %s", wrapped.Err, apiErr.ErrorMessage())
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrBucketNotFound
	case strings.Contains(errMsg, "BucketAlreadyExists") || strings.Contains(errMsg, "BucketAlreadyOwnedByYou") || strings.Contains(errMsg, "409"):
		wrapped.Err = provider.ErrAlreadyExists
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = provider.ErrProviderUnavailable
	}

	return wrapped
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

func contentTypeFor(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// resolveRegion determines the final region to use after SDK config loading.
//
// The sdkRegion parameter is the region after SDK loading, which already
// incorporates explicit cfgRegion (if set) or env/profile resolution.
//
// This function only applies the fallback default:
//   - If sdkRegion is still empty AND no custom endpoint, default to us-east-1
//   - For S3-compatible stores (endpoint set), no defaulting occurs
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	_ = cfgRegion
	// SDK already resolved region (from explicit config, env, or profile)
	if sdkRegion != "" {
		return sdkRegion
	}

	// Only default for AWS S3 (no custom endpoint)
	if endpoint == "" {
		return DefaultAWSRegion
	}

	// S3-compatible: no default, provider may not need region
	return ""
}
