package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

func TestRespondWithError_ProviderErrors(t *testing.T) {
	ResetHTTPErrorResponder()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "object not found",
			err:      &provider.ProviderError{Op: "GetObjectMetadata", Provider: provider.ProviderFile, Bucket: "b", Key: "k", Err: provider.ErrNotFound},
			wantCode: http.StatusNotFound,
			wantBody: `"code":"NOT_FOUND"`,
		},
		{
			name:     "bucket exists",
			err:      provider.ErrAlreadyExists,
			wantCode: http.StatusConflict,
			wantBody: `"code":"CONFLICT"`,
		},
		{
			name:     "provider unavailable",
			err:      provider.ErrProviderUnavailable,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `"code":"SERVICE_UNAVAILABLE"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithError(rec, httptest.NewRequest(http.MethodGet, "/debug/handles", nil), tt.err)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRespondWithError_CarriesRequestID(t *testing.T) {
	ResetHTTPErrorResponder()

	h := chimw.RequestID(HandlesHandler(nil))
	req := httptest.NewRequest(http.MethodGet, "/debug/handles", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)
}

func TestSetHTTPErrorResponder(t *testing.T) {
	t.Cleanup(ResetHTTPErrorResponder)

	var got error
	SetHTTPErrorResponder(func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	HandlesHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/debug/handles", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "bridge not attached")

	SetHTTPErrorResponder(nil)
	rec = httptest.NewRecorder()
	HandlesHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/debug/handles", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
