package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"

	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

func TestCreateClient_FailureYieldsNullHandle(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := New(func(context.Context) (provider.Client, error) {
		return nil, fmt.Errorf("%w: no credentials", provider.ErrInvalidCredentials)
	}, zap.New(core))

	h := b.CreateClient()

	assert.True(t, h.IsNull())
	assert.Equal(t, NullClient, h)
	assert.Equal(t, 0, b.Stats().Clients)
	require.Equal(t, 1, logs.FilterMessage("client construction failed").Len())
}

func TestCreateClientWithStatus(t *testing.T) {
	b := New(func(context.Context) (provider.Client, error) {
		return nil, fmt.Errorf("%w: no credentials", provider.ErrInvalidCredentials)
	}, nil)

	h, st := b.CreateClientWithStatus()
	assert.True(t, h.IsNull())
	require.NotNil(t, st)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Contains(t, st.Message(), "no credentials")

	b = New(fakeFactory(&fakeClient{}), nil)
	h, st = b.CreateClientWithStatus()
	assert.False(t, h.IsNull())
	assert.Nil(t, st)
}

func TestCreateClient_NilFactory(t *testing.T) {
	b := New(nil, nil)
	h, st := b.CreateClientWithStatus()
	assert.True(t, h.IsNull())
	assert.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestDestroyClient_ClosesOnce(t *testing.T) {
	fc := &fakeClient{}
	b := New(fakeFactory(fc), nil)

	h := b.CreateClient()
	require.False(t, h.IsNull())
	assert.Equal(t, 1, b.Stats().Clients)

	b.DestroyClient(h)
	b.DestroyClient(h)
	b.DestroyClient(NullClient)

	assert.Equal(t, int32(1), fc.closed.Load())
	assert.Equal(t, 0, b.Stats().Clients)
}

func TestAsync_SuccessDeliversOnce(t *testing.T) {
	b, h := newFileBridge(t)

	res := newBucketResult()
	b.CreateBucket(h, "test-bucket", res.callback)
	env := res.wait(t, b)

	require.True(t, b.IsBucketOk(env))
	assert.True(t, env.Status.IsNull())
	assert.False(t, env.Value.IsNull())
	name, ok := b.BucketString(env, BucketName)
	assert.True(t, ok)
	assert.Equal(t, "test-bucket", name)
	b.FreeBucketEnvelope(env)
}

func TestAsync_FailureDeliversOnce(t *testing.T) {
	b, h := newFileBridge(t)
	createBucket(t, b, h, "test-bucket")

	res := newBucketResult()
	b.CreateBucket(h, "test-bucket", res.callback)
	env := res.wait(t, b)

	assert.False(t, b.IsBucketOk(env))
	assert.True(t, env.Value.IsNull())
	assert.Equal(t, codes.AlreadyExists, b.StatusCode(env.Status))
	msg, ok := b.StatusMessage(env.Status)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)
	b.FreeBucketEnvelope(env)
}

func TestAsync_UnknownClientHandle(t *testing.T) {
	b := New(fakeFactory(&fakeClient{}), nil)

	res := newObjectResult()
	b.GetObjectMetadata(ClientHandle(handle.Handle(0xdead)), "b", "o", res.callback)
	env := res.wait(t, b)

	assert.False(t, b.IsObjectOk(env))
	assert.Equal(t, codes.InvalidArgument, b.StatusCode(env.Status))
	b.FreeObjectEnvelope(env)

	res = newObjectResult()
	b.GetObjectMetadata(NullClient, "b", "o", res.callback)
	env = res.wait(t, b)
	assert.Equal(t, codes.InvalidArgument, b.StatusCode(env.Status))
	b.FreeObjectEnvelope(env)
}

func TestAsync_PanicBecomesInternalStatus(t *testing.T) {
	fc := &fakeClient{
		getObject: func(context.Context, string, string) (*provider.ObjectMeta, error) {
			panic("collaborator exploded")
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	res := newObjectResult()
	b.GetObjectMetadata(h, "b", "o", res.callback)
	env := res.wait(t, b)

	assert.False(t, b.IsObjectOk(env))
	assert.Equal(t, codes.Internal, b.StatusCode(env.Status))
	msg, _ := b.StatusMessage(env.Status)
	assert.Contains(t, msg, "collaborator exploded")
	b.FreeObjectEnvelope(env)
}

func TestAsync_NilResultBecomesInternalStatus(t *testing.T) {
	fc := &fakeClient{
		getObject: func(context.Context, string, string) (*provider.ObjectMeta, error) {
			return nil, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	res := newObjectResult()
	b.GetObjectMetadata(h, "b", "o", res.callback)
	env := res.wait(t, b)

	assert.Equal(t, codes.Internal, b.StatusCode(env.Status))
	b.FreeObjectEnvelope(env)
}

func TestAsync_PanickingCallbackIsNotRedelivered(t *testing.T) {
	fc := &fakeClient{
		getObject: func(context.Context, string, string) (*provider.ObjectMeta, error) {
			return &provider.ObjectMeta{Name: "o"}, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	var mu sync.Mutex
	calls := 0
	b.GetObjectMetadata(h, "b", "o", func(ObjectEnvelope) {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("host callback failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestAsync_ReturnsBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	fc := &fakeClient{
		getObject: func(context.Context, string, string) (*provider.ObjectMeta, error) {
			<-release
			return &provider.ObjectMeta{Name: "o"}, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	res := newObjectResult()
	b.GetObjectMetadata(h, "b", "o", res.callback)

	assert.Equal(t, map[string]int{OpGetObjectMetadata: 1}, b.Stats().Operations)
	select {
	case <-res.envs:
		t.Fatal("callback fired before the collaborator returned")
	default:
	}

	close(release)
	env := res.wait(t, b)
	assert.True(t, b.IsObjectOk(env))
	assert.Empty(t, b.Stats().Operations)
	b.FreeObjectEnvelope(env)
}

func TestAsync_InputsAreCopied(t *testing.T) {
	got := make(chan string, 1)
	fc := &fakeClient{
		createBucket: func(_ context.Context, name string, opts provider.BucketOptions) (*provider.BucketMeta, error) {
			got <- name + "|" + opts.Labels["k"]
			return &provider.BucketMeta{Name: name}, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	labels := map[string]string{"k": "v"}
	res := newBucketResult()
	b.CreateBucketWithOptions(h, "bucket", BucketOptions{Labels: labels}, res.callback)
	labels["k"] = "mutated"

	env := res.wait(t, b)
	assert.Equal(t, "bucket|v", <-got)
	b.FreeBucketEnvelope(env)
}

func TestAsync_ConcurrentOperationsEachDeliverOnce(t *testing.T) {
	fc := &fakeClient{
		getObject: func(_ context.Context, bucket, object string) (*provider.ObjectMeta, error) {
			if object == "missing" {
				return nil, provider.ErrNotFound
			}
			return &provider.ObjectMeta{Name: object, Bucket: bucket}, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	const n = 64
	var mu sync.Mutex
	calls := make(map[string]int)
	okCount := 0

	for i := 0; i < n; i++ {
		object := fmt.Sprintf("obj-%d", i)
		if i%4 == 0 {
			object = "missing"
		}
		b.GetObjectMetadata(h, "bucket", object, func(env ObjectEnvelope) {
			mu.Lock()
			defer mu.Unlock()
			name, _ := b.ObjectString(env, ObjectName)
			calls[name]++
			if b.IsObjectOk(env) {
				okCount++
			}
			b.FreeObjectEnvelope(env)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n*3/4, okCount)
	assert.Equal(t, n/4, calls[""])
	for i := 0; i < n; i++ {
		if i%4 != 0 {
			assert.Equal(t, 1, calls[fmt.Sprintf("obj-%d", i)])
		}
	}
	stats := b.Stats()
	assert.Zero(t, stats.Objects)
	assert.Zero(t, stats.Statuses)
}

func TestAsync_NilCallbackReleasesEnvelope(t *testing.T) {
	fc := &fakeClient{
		getBucket: func(_ context.Context, bucket string) (*provider.BucketMeta, error) {
			return &provider.BucketMeta{Name: bucket}, nil
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	b.GetBucketMetadata(h, "bucket", nil)
	require.NoError(t, b.Drain(context.Background()))
	assert.Zero(t, b.Stats().Buckets)
}

func TestUploadFile(t *testing.T) {
	b, h := newFileBridge(t)
	createBucket(t, b, h, "test-bucket")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("some notes"), 0o644))

	res := newObjectResult()
	b.UploadFile(h, path, "test-bucket", "docs/notes.txt", res.callback)
	env := res.wait(t, b)

	require.True(t, b.IsObjectOk(env))
	assert.Equal(t, uint64(10), b.ObjectUint(env, ObjectSize))
	name, _ := b.ObjectString(env, ObjectName)
	assert.Equal(t, "docs/notes.txt", name)
	b.FreeObjectEnvelope(env)

	res = newObjectResult()
	b.UploadFile(h, filepath.Join(t.TempDir(), "missing.txt"), "test-bucket", "x", res.callback)
	env = res.wait(t, b)
	assert.False(t, b.IsObjectOk(env))
	assert.Equal(t, codes.NotFound, b.StatusCode(env.Status))
	b.FreeObjectEnvelope(env)
}

func TestGetBucketMetadata(t *testing.T) {
	b, h := newFileBridge(t)

	res := newBucketResult()
	b.CreateBucketWithOptions(h, "labelled", BucketOptions{
		Location:   "EU",
		Labels:     map[string]string{"team": "data", "env": "dev"},
		Versioning: true,
	}, res.callback)
	env := res.wait(t, b)
	require.True(t, b.IsBucketOk(env))
	b.FreeBucketEnvelope(env)

	res = newBucketResult()
	b.GetBucketMetadata(h, "labelled", res.callback)
	env = res.wait(t, b)
	require.True(t, b.IsBucketOk(env))

	loc, ok := b.BucketString(env, BucketLocation)
	assert.True(t, ok)
	assert.Equal(t, "EU", loc)
	assert.True(t, b.BucketBool(env, BucketVersioning))
	assert.False(t, b.BucketTime(env, BucketTimeCreated).IsZero())
	require.Equal(t, 2, b.BucketLabelCount(env))
	k, _ := b.BucketLabelKey(env, 0)
	v, _ := b.BucketLabelValue(env, 0)
	assert.Equal(t, "env", k)
	assert.Equal(t, "dev", v)
	b.FreeBucketEnvelope(env)

	res = newBucketResult()
	b.GetBucketMetadata(h, "no-such-bucket", res.callback)
	env = res.wait(t, b)
	assert.False(t, b.IsBucketOk(env))
	assert.Equal(t, codes.NotFound, b.StatusCode(env.Status))
	b.FreeBucketEnvelope(env)
}

func TestFreeEnvelope_Twice(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fc := &fakeClient{
		getObject: func(context.Context, string, string) (*provider.ObjectMeta, error) {
			return nil, errors.New("boom")
		},
	}
	b := New(fakeFactory(fc), zap.New(core))
	h := b.CreateClient()

	res := newObjectResult()
	b.GetObjectMetadata(h, "b", "o", res.callback)
	env := res.wait(t, b)
	assert.Equal(t, codes.Unknown, b.StatusCode(env.Status))

	b.FreeObjectEnvelope(env)
	b.FreeObjectEnvelope(env)

	assert.Zero(t, b.Stats().Statuses)
	assert.Equal(t, 1, logs.FilterMessage("release of unknown envelope").Len())
	// A released status handle no longer resolves.
	assert.Equal(t, codes.OK, b.StatusCode(env.Status))
	_, ok := b.StatusMessage(env.Status)
	assert.False(t, ok)
}

func TestFailureMessageIsVerbatim(t *testing.T) {
	cause := fmt.Errorf("%w: bucket policy forbids writes", provider.ErrAccessDenied)
	fc := &fakeClient{
		uploadFile: func(context.Context, string, string, string) (*provider.ObjectMeta, error) {
			return nil, cause
		},
	}
	b := New(fakeFactory(fc), nil)
	h := b.CreateClient()

	res := newObjectResult()
	b.UploadFile(h, "/tmp/x", "b", "o", res.callback)
	env := res.wait(t, b)

	assert.Equal(t, codes.PermissionDenied, b.StatusCode(env.Status))
	msg, _ := b.StatusMessage(env.Status)
	assert.Equal(t, cause.Error(), msg)
	b.FreeObjectEnvelope(env)
}
