package provider

import (
	"fmt"
	"strings"
)

const (
	minBucketNameLen = 3
	maxBucketNameLen = 63
	maxObjectNameLen = 1024
)

// ValidateBucketName checks a bucket name against the common subset of S3 and
// GCS naming rules.
func ValidateBucketName(name string) error {
	if len(name) < minBucketNameLen || len(name) > maxBucketNameLen {
		return fmt.Errorf("%w: bucket name %q must be %d-%d characters", ErrInvalidArgument, name, minBucketNameLen, maxBucketNameLen)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
			if i == 0 || i == len(name)-1 {
				return fmt.Errorf("%w: bucket name %q must start and end with a letter or digit", ErrInvalidArgument, name)
			}
		default:
			return fmt.Errorf("%w: bucket name %q contains invalid character %q", ErrInvalidArgument, name, c)
		}
	}
	return nil
}

// ValidateObjectName rejects empty names, over-long names and names that
// contain NUL or newline characters.
func ValidateObjectName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: object name is required", ErrInvalidArgument)
	}
	if len(name) > maxObjectNameLen {
		return fmt.Errorf("%w: object name exceeds %d bytes", ErrInvalidArgument, maxObjectNameLen)
	}
	if strings.ContainsAny(name, "\x00\r\n") {
		return fmt.Errorf("%w: object name contains control characters", ErrInvalidArgument)
	}
	return nil
}
