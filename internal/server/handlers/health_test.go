package handlers

import (
	"context"
	"encoding/json"
	"errors"
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

// liveClientChecker fails until the bridge holds at least one client.
type liveClientChecker struct{ b *bridge.Bridge }

func (c liveClientChecker) CheckHealth(context.Context) error {
	if c.b.Stats().Clients == 0 {
		return errors.New("no live storage client")
	}
	return nil
}

type slowChecker struct{}

func (slowChecker) CheckHealth(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func useGlobalHealthManager(t *testing.T, m *HealthManager) {
	t.Helper()
	orig := globalHealthManager
	globalHealthManager = m
	t.Cleanup(func() { globalHealthManager = orig })
}

func TestHealthHandler_StorageChecker(t *testing.T) {
	b := bridge.New(func(context.Context) (provider.Client, error) {
		return &gatedClient{release: make(chan struct{})}, nil
	}, zap.NewNop())
	m := NewHealthManager("1.2.3")
	m.RegisterChecker("storage", liveClientChecker{b: b})

	rec := httptest.NewRecorder()
	m.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var failed struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failed))
	assert.Equal(t, "SERVICE_UNAVAILABLE", failed.Error.Code)
	assert.Equal(t, map[string]any{"storage": StatusUnhealthy}, failed.Error.Details["checks"])

	h := b.CreateClient()
	require.False(t, h.IsNull())
	defer b.DestroyClient(h)

	rec = httptest.NewRecorder()
	m.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Checks["storage"])
}

func TestReadinessHandler_TimeoutIsDegraded(t *testing.T) {
	m := NewHealthManager("1.0.0")
	m.timeout = 10 * time.Millisecond
	m.RegisterChecker("slow", slowChecker{})

	rec := httptest.NewRecorder()
	m.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusTimeout, resp.Checks["slow"])
}

func TestLivenessHandler_SkipsCheckers(t *testing.T) {
	m := NewHealthManager("1.0.0")
	m.RegisterChecker("storage", liveClientChecker{b: bridge.New(nil, nil)})

	rec := httptest.NewRecorder()
	m.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Checks)
}

func TestDetermineOverallStatus(t *testing.T) {
	m := NewHealthManager("dev")
	tests := []struct {
		checks map[string]string
		want   string
	}{
		{checks: nil, want: StatusHealthy},
		{checks: map[string]string{"storage": StatusHealthy}, want: StatusHealthy},
		{checks: map[string]string{"storage": StatusTimeout}, want: StatusDegraded},
		{checks: map[string]string{"storage": StatusTimeout, "identity": StatusUnhealthy}, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.determineOverallStatus(tt.checks), "checks %v", tt.checks)
	}
}

func TestGlobalHandlers(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"/health":         HealthHandler,
		"/health/live":    LivenessHandler,
		"/health/ready":   ReadinessHandler,
		"/health/startup": StartupHandler,
	}

	t.Run("not initialized", func(t *testing.T) {
		useGlobalHealthManager(t, nil)
		assert.Nil(t, GetHealthManager())
		for route, h := range handlers {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, route, nil))
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code, route)
		}
	})

	t.Run("initialized", func(t *testing.T) {
		useGlobalHealthManager(t, nil)
		InitHealthManager("test-version")
		require.NotNil(t, GetHealthManager())
		for route, h := range handlers {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, route, nil))
			assert.Equal(t, http.StatusOK, rec.Code, route)
		}
	})
}
