// Package middleware provides the HTTP middleware chain of the admin server.
package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/3leaps/nimbusbridge/internal/errors"
)

// ErrorResponse is the JSON error envelope written by the middleware.
type ErrorResponse = apperrors.HTTPErrorResponse

// RequestID assigns a request ID (reusing an incoming X-Request-ID) and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			w.Header().Set(chimw.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	}))
}

// Recovery turns a panic in next into a 500 JSON error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			msg := fmt.Sprintf("panic: %v", rec)
			if err, ok := rec.(error); ok {
				msg = "panic: " + err.Error()
			}
			writeErrorResponse(w, ErrorResponse{Error: apperrors.HTTPError{
				Code:      apperrors.CodeInternal,
				Message:   msg,
				RequestID: chimw.GetReqID(r.Context()),
			}}, http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery kept for router wiring symmetry.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	apperrors.WriteJSON(w, statusCode, resp)
}
