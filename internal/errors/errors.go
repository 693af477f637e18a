// Package errors defines the JSON error envelope returned by the admin
// server and the helpers that map application errors onto it.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// Error codes used in HTTP error envelopes.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeConflict           = "CONFLICT"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeExternalService    = "EXTERNAL_SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeNotImplemented     = "NOT_IMPLEMENTED"
)

// HTTPError is the body of an error envelope.
type HTTPError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the JSON document written for every failed request.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// New creates an AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails attaches structured details to the envelope.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// NewExternalServiceError reports a dependency that could not be reached.
func NewExternalServiceError(message string) *AppError {
	return New(http.StatusServiceUnavailable, CodeExternalService, message)
}

// WrapInternal wraps err as a 500 with a caller-facing message. A context
// error is reported as a timeout instead.
func WrapInternal(ctx context.Context, err error, message string) *AppError {
	if ctx != nil && ctx.Err() != nil {
		return &AppError{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: message, Err: err}
	}
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// FromError converts any error into an AppError. Storage errors are
// classified through their status code; anything else becomes a 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if stderrors.As(err, &app) {
		return app
	}
	st := provider.StatusFromError(err)
	httpStatus, code := HTTPStatus(st.Code())
	return &AppError{Status: httpStatus, Code: code, Message: st.Message(), Err: err}
}

// HTTPStatus maps a status code onto an HTTP status and envelope code.
func HTTPStatus(c codes.Code) (int, string) {
	switch c {
	case codes.OK:
		return http.StatusOK, ""
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest, CodeBadRequest
	case codes.NotFound:
		return http.StatusNotFound, CodeNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, CodeConflict
	case codes.PermissionDenied:
		return http.StatusForbidden, CodeForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized, CodeUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, CodeTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, CodeBadRequest
	case codes.Unavailable:
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	case codes.DeadlineExceeded, codes.Canceled:
		return http.StatusGatewayTimeout, CodeTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented, CodeNotImplemented
	}
	return http.StatusInternalServerError, CodeInternal
}

// WriteJSON writes an error envelope with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, resp HTTPErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// RespondWithError renders err as a JSON error envelope carrying the
// request ID of r.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	app := FromError(err)
	if app == nil {
		app = New(http.StatusInternalServerError, CodeInternal, "unknown error")
	}
	WriteJSON(w, app.Status, HTTPErrorResponse{Error: HTTPError{
		Code:      app.Code,
		Message:   app.Message,
		RequestID: requestID(r),
		Details:   app.Details,
	}})
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, r, New(http.StatusNotFound, CodeNotFound, "route not found: "+r.URL.Path))
}

// MethodNotAllowedHandler answers known routes requested with the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, r, New(http.StatusMethodNotAllowed, CodeMethodNotAllowed,
		fmt.Sprintf("method %s not allowed for %s", r.Method, r.URL.Path)))
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return chimw.GetReqID(r.Context())
}
