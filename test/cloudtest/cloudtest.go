// Package cloudtest holds fixtures for tests that run against a moto S3
// server. Tests that use it carry the cloudintegration build tag.
//
//	func TestWrite_CloudIntegration(t *testing.T) {
//	    cloudtest.SkipIfUnavailable(t)
//	    p, _ := s3.New(ctx, cloudtest.ProviderConfig())
//	    bucket := cloudtest.CreateBucket(t, ctx)
//	    // write through p, then check with cloudtest.ObjectBody
//	}
package cloudtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/3leaps/nimbusbridge/pkg/provider"
	"github.com/3leaps/nimbusbridge/pkg/provider/s3"
)

// Moto accepts any credentials. Port 5555 keeps clear of macOS AirPlay on 5000.
const (
	DefaultEndpoint     = "http://localhost:5555"
	DefaultRegion       = "us-east-1"
	TestAccessKeyID     = "testing"
	TestSecretAccessKey = "testing"
)

var (
	Endpoint = envOr("MOTO_ENDPOINT", DefaultEndpoint)
	Region   = envOr("MOTO_REGION", DefaultRegion)

	probeOnce sync.Once
	reachable bool

	rawOnce   sync.Once
	rawClient *awss3.Client
	rawErr    error

	bucketSeq atomic.Int64
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ProviderConfig points the S3 provider at the moto endpoint.
func ProviderConfig() s3.Config {
	return s3.Config{
		Endpoint:        Endpoint,
		Region:          Region,
		AccessKeyID:     TestAccessKeyID,
		SecretAccessKey: TestSecretAccessKey,
		ForcePathStyle:  true,
	}
}

// SkipIfUnavailable skips t when the moto server does not answer. The probe
// runs once per test binary.
func SkipIfUnavailable(t *testing.T) {
	t.Helper()
	probeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint+"/moto-api/", nil)
		if err != nil {
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return
		}
		_ = resp.Body.Close()
		reachable = resp.StatusCode == http.StatusOK
	})
	if !reachable {
		t.Skipf("moto server not available at %s (start with: docker run --rm -p 5555:5000 motoserver/moto)", Endpoint)
	}
}

// raw returns an SDK client used to seed and inspect buckets independently of
// the provider under test.
func raw(t *testing.T) *awss3.Client {
	t.Helper()
	rawOnce.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(TestAccessKeyID, TestSecretAccessKey, "")),
		)
		if err != nil {
			rawErr = err
			return
		}
		rawClient = awss3.NewFromConfig(cfg, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(Endpoint)
			o.UsePathStyle = true
		})
	})
	if rawErr != nil {
		t.Fatalf("moto client: %v", rawErr)
	}
	return rawClient
}

// UniqueBucketName returns a valid bucket name derived from the test name and
// removes the bucket when the test ends. Use it when the code under test
// creates the bucket itself.
func UniqueBucketName(t *testing.T) string {
	t.Helper()
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, t.Name())
	if len(base) > 40 {
		base = base[:40]
	}
	name := fmt.Sprintf("nb-%s-%d-%d", strings.Trim(base, "-"), time.Now().UnixNano()%100000, bucketSeq.Add(1))
	if err := provider.ValidateBucketName(name); err != nil {
		t.Fatalf("generated bucket name: %v", err)
	}
	t.Cleanup(func() { DeleteBucket(t, context.Background(), name) })
	return name
}

// CreateBucket creates an empty bucket outside the provider under test.
func CreateBucket(t *testing.T, ctx context.Context) string {
	t.Helper()
	name := UniqueBucketName(t)
	if _, err := raw(t).CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		t.Fatalf("create bucket %s: %v", name, err)
	}
	return name
}

// PutObject seeds bucket/key with content.
func PutObject(t *testing.T, ctx context.Context, bucket, key string, content []byte) {
	t.Helper()
	_, err := raw(t).PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		t.Fatalf("put %s/%s: %v", bucket, key, err)
	}
}

// ObjectBody reads back bucket/key so tests can check what a write stored.
func ObjectBody(t *testing.T, ctx context.Context, bucket, key string) []byte {
	t.Helper()
	out, err := raw(t).GetObject(ctx, &awss3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		t.Fatalf("get %s/%s: %v", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		t.Fatalf("read %s/%s: %v", bucket, key, err)
	}
	return body
}

// DeleteBucket empties and removes bucket. Failures are logged, not fatal.
func DeleteBucket(t *testing.T, ctx context.Context, bucket string) {
	t.Helper()
	c := raw(t)
	pages := awss3.NewListObjectsV2Paginator(c, &awss3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			t.Logf("cleanup: list %s: %v", bucket, err)
			return
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = c.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			t.Logf("cleanup: delete objects in %s: %v", bucket, err)
		}
	}
	if _, err := c.DeleteBucket(ctx, &awss3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Logf("cleanup: delete bucket %s: %v", bucket, err)
	}
}
