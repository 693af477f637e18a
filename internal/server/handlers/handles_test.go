package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// gatedClient blocks object lookups until release is closed.
type gatedClient struct {
	provider.Client
	release chan struct{}
}

func (c *gatedClient) GetObjectMetadata(ctx context.Context, bucket, object string) (*provider.ObjectMeta, error) {
	<-c.release
	return &provider.ObjectMeta{Bucket: bucket, Name: object, Size: 3}, nil
}

func (c *gatedClient) Close() error { return nil }

func getHandles(t *testing.T, b *bridge.Bridge) (int, bridge.Stats) {
	t.Helper()
	rec := httptest.NewRecorder()
	HandlesHandler(b)(rec, httptest.NewRequest(http.MethodGet, "/debug/handles", nil))

	var stats bridge.Stats
	if rec.Code == http.StatusOK {
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	}
	return rec.Code, stats
}

func TestHandlesHandler_Empty(t *testing.T) {
	code, stats := getHandles(t, bridge.New(nil, zap.NewNop()))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, bridge.Stats{Operations: map[string]int{}}, stats)
}

func TestHandlesHandler_NoBridge(t *testing.T) {
	rec := httptest.NewRecorder()
	HandlesHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/debug/handles", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestHandlesHandler_FailedWriterSession(t *testing.T) {
	b := bridge.New(func(context.Context) (provider.Client, error) {
		return nil, provider.ErrProviderUnavailable
	}, zap.NewNop())
	w := b.WriteObject(bridge.NullClient, "bucket", "object")

	_, stats := getHandles(t, b)
	assert.Equal(t, 1, stats.Writers)
	assert.Zero(t, stats.Clients)

	b.DestroyWriter(w)
	_, stats = getHandles(t, b)
	assert.Zero(t, stats.Writers)
}

func TestHandlesHandler_TracksOperationAndEnvelope(t *testing.T) {
	client := &gatedClient{release: make(chan struct{})}
	b := bridge.New(func(context.Context) (provider.Client, error) {
		return client, nil
	}, zap.NewNop())
	h := b.CreateClient()
	require.False(t, h.IsNull())
	defer b.DestroyClient(h)

	done := make(chan bridge.ObjectEnvelope, 1)
	b.GetObjectMetadata(h, "bucket", "obj.txt", func(env bridge.ObjectEnvelope) { done <- env })

	code, stats := getHandles(t, b)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, map[string]int{bridge.OpGetObjectMetadata: 1}, stats.Operations)
	assert.Zero(t, stats.Objects)

	close(client.release)
	var env bridge.ObjectEnvelope
	select {
	case env = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not delivered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))

	_, stats = getHandles(t, b)
	assert.Empty(t, stats.Operations)
	assert.Equal(t, 1, stats.Objects)

	b.FreeObjectEnvelope(env)
	_, stats = getHandles(t, b)
	assert.Zero(t, stats.Objects)
}
