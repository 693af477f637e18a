package bridge

import (
	"context"
	"strings"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// Operation names used in logs and metrics.
const (
	OpCreateBucket      = "CreateBucket"
	OpGetBucketMetadata = "GetBucketMetadata"
	OpUploadFile        = "UploadFile"
	OpGetObjectMetadata = "GetObjectMetadata"
	OpWriteChunk        = "WriteChunk"
	OpCloseWriter       = "CloseWriter"
)

// BucketOptions are the optional settings of CreateBucketWithOptions.
type BucketOptions = provider.BucketOptions

// CreateBucket creates a bucket with default settings. The call returns
// immediately and cb receives the result exactly once.
func (b *Bridge) CreateBucket(h ClientHandle, name string, cb BucketCallback) {
	b.CreateBucketWithOptions(h, name, BucketOptions{}, cb)
}

// CreateBucketWithOptions creates a bucket. Inputs are copied before
// returning, so the caller's buffers may be reused immediately.
func (b *Bridge) CreateBucketWithOptions(h ClientHandle, name string, opts BucketOptions, cb BucketCallback) {
	name = strings.Clone(name)
	opts = cloneBucketOptions(opts)
	b.submitBucket(h, OpCreateBucket, cb, func(ctx context.Context, c provider.Client) (*provider.BucketMeta, error) {
		return c.CreateBucket(ctx, name, opts)
	})
}

// GetBucketMetadata fetches bucket metadata asynchronously.
func (b *Bridge) GetBucketMetadata(h ClientHandle, bucket string, cb BucketCallback) {
	bucket = strings.Clone(bucket)
	b.submitBucket(h, OpGetBucketMetadata, cb, func(ctx context.Context, c provider.Client) (*provider.BucketMeta, error) {
		return c.GetBucketMetadata(ctx, bucket)
	})
}

// UploadFile uploads the local file at path asynchronously.
func (b *Bridge) UploadFile(h ClientHandle, path, bucket, object string, cb ObjectCallback) {
	path, bucket, object = strings.Clone(path), strings.Clone(bucket), strings.Clone(object)
	b.submitObject(h, OpUploadFile, cb, func(ctx context.Context, c provider.Client) (*provider.ObjectMeta, error) {
		return c.UploadFile(ctx, path, bucket, object)
	})
}

// GetObjectMetadata fetches object metadata asynchronously.
func (b *Bridge) GetObjectMetadata(h ClientHandle, bucket, object string, cb ObjectCallback) {
	bucket, object = strings.Clone(bucket), strings.Clone(object)
	b.submitObject(h, OpGetObjectMetadata, cb, func(ctx context.Context, c provider.Client) (*provider.ObjectMeta, error) {
		return c.GetObjectMetadata(ctx, bucket, object)
	})
}

// submitObject resolves the client on the calling goroutine so that a handle
// destroyed after submit does not affect the operation. An unknown handle
// still produces exactly one failure delivery.
func (b *Bridge) submitObject(h ClientHandle, name string, cb ObjectCallback,
	call func(context.Context, provider.Client) (*provider.ObjectMeta, error)) {
	client, clientErr := b.client(h)

	var meta *provider.ObjectMeta
	b.runner.Submit(name, func(ctx context.Context) error {
		if clientErr != nil {
			return clientErr
		}
		var err error
		meta, err = call(ctx, client)
		return err
	}, func(err error) {
		if err != nil {
			meta = nil
		}
		env := b.newObjectEnvelope(meta, err)
		if cb == nil {
			b.FreeObjectEnvelope(env)
			return
		}
		cb(env)
	})
}

func (b *Bridge) submitBucket(h ClientHandle, name string, cb BucketCallback,
	call func(context.Context, provider.Client) (*provider.BucketMeta, error)) {
	client, clientErr := b.client(h)

	var meta *provider.BucketMeta
	b.runner.Submit(name, func(ctx context.Context) error {
		if clientErr != nil {
			return clientErr
		}
		var err error
		meta, err = call(ctx, client)
		return err
	}, func(err error) {
		if err != nil {
			meta = nil
		}
		env := b.newBucketEnvelope(meta, err)
		if cb == nil {
			b.FreeBucketEnvelope(env)
			return
		}
		cb(env)
	})
}

func cloneBucketOptions(o BucketOptions) BucketOptions {
	out := o
	out.Location = strings.Clone(o.Location)
	out.StorageClass = strings.Clone(o.StorageClass)
	if o.Labels != nil {
		out.Labels = make(map[string]string, len(o.Labels))
		for k, v := range o.Labels {
			out.Labels[strings.Clone(k)] = strings.Clone(v)
		}
	}
	return out
}
