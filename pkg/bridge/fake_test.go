package bridge

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusbridge/pkg/provider"
	"github.com/3leaps/nimbusbridge/pkg/provider/file"
)

// fakeClient is a provider.Client whose behavior is set per test.
type fakeClient struct {
	createBucket func(ctx context.Context, name string, opts provider.BucketOptions) (*provider.BucketMeta, error)
	getBucket    func(ctx context.Context, bucket string) (*provider.BucketMeta, error)
	uploadFile   func(ctx context.Context, path, bucket, object string) (*provider.ObjectMeta, error)
	getObject    func(ctx context.Context, bucket, object string) (*provider.ObjectMeta, error)
	openWriter   func(ctx context.Context, bucket, object string) (provider.ObjectWriter, error)

	closed atomic.Int32
}

var _ provider.Client = (*fakeClient)(nil)

var errNotConfigured = errors.New("fake: not configured")

func (c *fakeClient) CreateBucket(ctx context.Context, name string, opts provider.BucketOptions) (*provider.BucketMeta, error) {
	if c.createBucket == nil {
		return nil, errNotConfigured
	}
	return c.createBucket(ctx, name, opts)
}

func (c *fakeClient) GetBucketMetadata(ctx context.Context, bucket string) (*provider.BucketMeta, error) {
	if c.getBucket == nil {
		return nil, errNotConfigured
	}
	return c.getBucket(ctx, bucket)
}

func (c *fakeClient) UploadFile(ctx context.Context, path, bucket, object string) (*provider.ObjectMeta, error) {
	if c.uploadFile == nil {
		return nil, errNotConfigured
	}
	return c.uploadFile(ctx, path, bucket, object)
}

func (c *fakeClient) GetObjectMetadata(ctx context.Context, bucket, object string) (*provider.ObjectMeta, error) {
	if c.getObject == nil {
		return nil, errNotConfigured
	}
	return c.getObject(ctx, bucket, object)
}

func (c *fakeClient) OpenWriteStream(ctx context.Context, bucket, object string) (provider.ObjectWriter, error) {
	if c.openWriter == nil {
		return nil, errNotConfigured
	}
	return c.openWriter(ctx, bucket, object)
}

func (c *fakeClient) Close() error {
	c.closed.Add(1)
	return nil
}

// fakeWriter fails the write numbered failAt (1-based). Zero never fails.
type fakeWriter struct {
	mu        sync.Mutex
	failAt    int
	writes    int
	buf       bytes.Buffer
	committed bool
	aborted   bool
}

var _ provider.ObjectWriter = (*fakeWriter)(nil)

func (w *fakeWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	if w.failAt > 0 && w.writes == w.failAt {
		return 0, provider.ErrProviderUnavailable
	}
	return w.buf.Write(b)
}

func (w *fakeWriter) Commit() (*provider.ObjectMeta, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.committed = true
	return &provider.ObjectMeta{Name: "fake", Size: uint64(w.buf.Len())}, nil
}

func (w *fakeWriter) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aborted = true
	return nil
}

func fakeFactory(c provider.Client) ClientFactory {
	return func(context.Context) (provider.Client, error) { return c, nil }
}

// newFileBridge returns a bridge over a file collaborator rooted in a temp
// dir, plus a live client handle.
func newFileBridge(t *testing.T) (*Bridge, ClientHandle) {
	t.Helper()
	base := t.TempDir()
	b := New(func(context.Context) (provider.Client, error) {
		return file.New(file.Config{BaseDir: base})
	}, nil)
	h := b.CreateClient()
	require.False(t, h.IsNull())
	t.Cleanup(func() { b.DestroyClient(h) })
	return b, h
}

// objectResult collects deliveries of one object operation.
type objectResult struct {
	mu    sync.Mutex
	calls int
	envs  chan ObjectEnvelope
}

func newObjectResult() *objectResult {
	return &objectResult{envs: make(chan ObjectEnvelope, 4)}
}

func (r *objectResult) callback(env ObjectEnvelope) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.envs <- env
}

// wait returns the single delivered envelope after draining the bridge, so
// a second delivery would be counted.
func (r *objectResult) wait(t *testing.T, b *Bridge) ObjectEnvelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))

	r.mu.Lock()
	calls := r.calls
	r.mu.Unlock()
	require.Equal(t, 1, calls, "callback must fire exactly once")
	return <-r.envs
}

type bucketResult struct {
	mu    sync.Mutex
	calls int
	envs  chan BucketEnvelope
}

func newBucketResult() *bucketResult {
	return &bucketResult{envs: make(chan BucketEnvelope, 4)}
}

func (r *bucketResult) callback(env BucketEnvelope) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.envs <- env
}

func (r *bucketResult) wait(t *testing.T, b *Bridge) BucketEnvelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))

	r.mu.Lock()
	calls := r.calls
	r.mu.Unlock()
	require.Equal(t, 1, calls, "callback must fire exactly once")
	return <-r.envs
}

func createBucket(t *testing.T, b *Bridge, h ClientHandle, name string) {
	t.Helper()
	res := newBucketResult()
	b.CreateBucket(h, name, res.callback)
	env := res.wait(t, b)
	require.True(t, b.IsBucketOk(env), "create bucket %s: %s", name, b.StatusCode(env.Status))
	b.FreeBucketEnvelope(env)
}
