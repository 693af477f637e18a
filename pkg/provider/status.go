package provider

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusFromError converts a provider error into a code/message pair.
//
// Errors that already carry a gRPC status keep their code. Sentinel errors
// map to their canonical code; anything else is codes.Unknown. The message is
// always the error text, unmodified. A nil error yields nil.
func StatusFromError(err error) *status.Status {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return st
	}
	return status.New(CodeOf(err), err.Error())
}

// CodeOf returns the canonical code for a provider error.
func CodeOf(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBucketNotFound):
		return codes.NotFound
	case errors.Is(err, ErrAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, ErrAccessDenied):
		return codes.PermissionDenied
	case errors.Is(err, ErrInvalidCredentials):
		return codes.Unauthenticated
	case errors.Is(err, ErrThrottled):
		return codes.ResourceExhausted
	case errors.Is(err, ErrProviderUnavailable):
		return codes.Unavailable
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrAborted):
		return codes.Aborted
	}
	return codes.Unknown
}
