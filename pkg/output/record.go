// Package output provides JSONL output for CLI results.
//
// Output is structured as typed record envelopes containing object and
// bucket metadata, errors, progress updates and summaries. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: nimbusbridge.<type>.v<version>
const (
	// TypeObject identifies object metadata records.
	TypeObject = "nimbusbridge.object.v1"

	// TypeBucket identifies bucket metadata records.
	TypeBucket = "nimbusbridge.bucket.v1"

	// TypeError identifies error records.
	TypeError = "nimbusbridge.error.v1"

	// TypeProgress identifies progress update records.
	TypeProgress = "nimbusbridge.progress.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "nimbusbridge.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "nimbusbridge.object.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this CLI invocation.
	JobID string `json:"job_id"`

	// Provider identifies the storage provider (e.g., "s3", "file").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// ObjectRecord is the data payload for object metadata.
type ObjectRecord struct {
	// Bucket is the bucket holding the object.
	Bucket string `json:"bucket"`

	// Name is the full object name (key).
	Name string `json:"name"`

	// Size is the object size in bytes.
	Size uint64 `json:"size"`

	// Generation identifies the object version.
	Generation uint64 `json:"generation,omitempty"`

	// ETag is the entity tag.
	ETag string `json:"etag,omitempty"`

	// MD5Hash is the base64 MD5 digest, when known.
	MD5Hash string `json:"md5_hash,omitempty"`

	// CRC32C is the base64 CRC32C checksum, when known.
	CRC32C string `json:"crc32c,omitempty"`

	ContentType  string `json:"content_type,omitempty"`
	StorageClass string `json:"storage_class,omitempty"`

	TimeCreated time.Time `json:"time_created"`
	Updated     time.Time `json:"updated"`

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`

	// ACL lists access control entries, when the provider reports them.
	ACL []ACLRecord `json:"acl,omitempty"`
}

// ACLRecord is one access control entry.
type ACLRecord struct {
	Entity string `json:"entity"`
	Role   string `json:"role"`
}

// BucketRecord is the data payload for bucket metadata.
type BucketRecord struct {
	Name         string            `json:"name"`
	Location     string            `json:"location,omitempty"`
	StorageClass string            `json:"storage_class,omitempty"`
	Versioning   bool              `json:"versioning"`
	TimeCreated  time.Time         `json:"time_created"`
	Labels       map[string]string `json:"labels,omitempty"`
	ACL          []ACLRecord       `json:"acl,omitempty"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire command,
// allowing partial results when some operations fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Bucket is the bucket related to this error, if applicable.
	Bucket string `json:"bucket,omitempty"`

	// Object is the object name related to this error, if applicable.
	Object string `json:"object,omitempty"`

	// Path is the local file related to this error, if applicable.
	Path string `json:"path,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeUnauthenticated = "UNAUTHENTICATED"
	ErrCodeThrottled       = "THROTTLED"
	ErrCodeUnavailable     = "UNAVAILABLE"
	ErrCodeAborted         = "ABORTED"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInternal        = "INTERNAL"
)

// ErrorCode maps a status code onto an ErrorRecord code.
func ErrorCode(c codes.Code) string {
	switch c {
	case codes.NotFound:
		return ErrCodeNotFound
	case codes.AlreadyExists:
		return ErrCodeAlreadyExists
	case codes.PermissionDenied:
		return ErrCodeAccessDenied
	case codes.Unauthenticated:
		return ErrCodeUnauthenticated
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return ErrCodeInvalidArgument
	case codes.ResourceExhausted:
		return ErrCodeThrottled
	case codes.Unavailable:
		return ErrCodeUnavailable
	case codes.Aborted:
		return ErrCodeAborted
	case codes.DeadlineExceeded, codes.Canceled:
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}

// ProgressRecord is the data payload for progress updates.
//
// Progress records are emitted periodically during multi-file uploads and
// long writes.
type ProgressRecord struct {
	// Phase indicates the current phase.
	Phase string `json:"phase"`

	// ItemsTotal is the number of items (files or chunks) expected.
	ItemsTotal int64 `json:"items_total"`

	// ItemsDone is the number of items finished so far.
	ItemsDone int64 `json:"items_done"`

	// BytesTotal is the cumulative size handled so far.
	BytesTotal int64 `json:"bytes_total"`

	// Path is the item currently in progress, if applicable.
	Path string `json:"path,omitempty"`
}

// Progress phase constants.
const (
	// PhaseStarting indicates the command is initializing.
	PhaseStarting = "starting"

	// PhaseUploading indicates uploads are in flight.
	PhaseUploading = "uploading"

	// PhaseWriting indicates a stream is receiving chunks.
	PhaseWriting = "writing"

	// PhaseComplete indicates the command has finished.
	PhaseComplete = "complete"
)

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Operation names the command that produced the summary.
	Operation string `json:"operation"`

	// Succeeded is the number of items that completed successfully.
	Succeeded int64 `json:"succeeded"`

	// Failed is the number of items that failed.
	Failed int64 `json:"failed"`

	// BytesTotal is the cumulative size of successful items in bytes.
	BytesTotal int64 `json:"bytes_total"`

	// Duration is the total duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
