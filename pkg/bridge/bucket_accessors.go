package bridge

import (
	"time"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// BucketStringField selects a string field of bucket metadata.
type BucketStringField int

const (
	BucketName BucketStringField = iota
	BucketID
	BucketETag
	BucketSelfLink
	BucketLocation
	BucketLocationType
	BucketStorageClass
	BucketOwnerEntity
	BucketOwnerEntityID
)

var bucketStrings = [...]func(*provider.BucketMeta) string{
	BucketName:         func(m *provider.BucketMeta) string { return m.Name },
	BucketID:           func(m *provider.BucketMeta) string { return m.ID },
	BucketETag:         func(m *provider.BucketMeta) string { return m.ETag },
	BucketSelfLink:     func(m *provider.BucketMeta) string { return m.SelfLink },
	BucketLocation:     func(m *provider.BucketMeta) string { return m.Location },
	BucketLocationType: func(m *provider.BucketMeta) string { return m.LocationType },
	BucketStorageClass: func(m *provider.BucketMeta) string { return m.StorageClass },
	BucketOwnerEntity: func(m *provider.BucketMeta) string {
		if m.Owner == nil {
			return ""
		}
		return m.Owner.Entity
	},
	BucketOwnerEntityID: func(m *provider.BucketMeta) string {
		if m.Owner == nil {
			return ""
		}
		return m.Owner.EntityID
	},
}

// BucketUintField selects a numeric field of bucket metadata.
type BucketUintField int

const (
	BucketProjectNumber BucketUintField = iota
	BucketMetageneration
	BucketRetentionPeriodSeconds
)

var bucketUints = [...]func(*provider.BucketMeta) uint64{
	BucketProjectNumber:  func(m *provider.BucketMeta) uint64 { return m.ProjectNumber },
	BucketMetageneration: func(m *provider.BucketMeta) uint64 { return nonNegative(m.Metageneration) },
	BucketRetentionPeriodSeconds: func(m *provider.BucketMeta) uint64 {
		if m.RetentionPolicy == nil {
			return 0
		}
		return nonNegative(int64(m.RetentionPolicy.Period / time.Second))
	},
}

// BucketTimeField selects a timestamp of bucket metadata.
type BucketTimeField int

const (
	BucketTimeCreated BucketTimeField = iota
	BucketUpdated
	BucketRetentionEffectiveTime
)

var bucketTimes = [...]func(*provider.BucketMeta) time.Time{
	BucketTimeCreated: func(m *provider.BucketMeta) time.Time { return m.TimeCreated },
	BucketUpdated:     func(m *provider.BucketMeta) time.Time { return m.Updated },
	BucketRetentionEffectiveTime: func(m *provider.BucketMeta) time.Time {
		if m.RetentionPolicy == nil {
			return time.Time{}
		}
		return m.RetentionPolicy.EffectiveTime
	},
}

// BucketBoolField selects a boolean of bucket metadata.
type BucketBoolField int

const (
	BucketVersioning BucketBoolField = iota
	BucketDefaultEventBasedHold
	BucketHasRetentionPolicy
	BucketRetentionPolicyLocked
)

var bucketBools = [...]func(*provider.BucketMeta) bool{
	BucketVersioning:            func(m *provider.BucketMeta) bool { return m.Versioning },
	BucketDefaultEventBasedHold: func(m *provider.BucketMeta) bool { return m.DefaultEventBasedHold },
	BucketHasRetentionPolicy:    func(m *provider.BucketMeta) bool { return m.RetentionPolicy != nil },
	BucketRetentionPolicyLocked: func(m *provider.BucketMeta) bool {
		return m.RetentionPolicy != nil && m.RetentionPolicy.IsLocked
	},
}

// BucketString returns a string field. The second result is false when the
// field is absent.
func (b *Bridge) BucketString(env BucketEnvelope, f BucketStringField) (string, bool) {
	m := b.bucketValue(env)
	if m == nil || f < 0 || int(f) >= len(bucketStrings) {
		return "", false
	}
	v := bucketStrings[f](m)
	return v, v != ""
}

// BucketUint returns a numeric field, or 0.
func (b *Bridge) BucketUint(env BucketEnvelope, f BucketUintField) uint64 {
	m := b.bucketValue(env)
	if m == nil || f < 0 || int(f) >= len(bucketUints) {
		return 0
	}
	return bucketUints[f](m)
}

// BucketTime returns a timestamp field, or the zero time.
func (b *Bridge) BucketTime(env BucketEnvelope, f BucketTimeField) time.Time {
	m := b.bucketValue(env)
	if m == nil || f < 0 || int(f) >= len(bucketTimes) {
		return time.Time{}
	}
	return bucketTimes[f](m)
}

// BucketBool returns a boolean field, or false.
func (b *Bridge) BucketBool(env BucketEnvelope, f BucketBoolField) bool {
	m := b.bucketValue(env)
	if m == nil || f < 0 || int(f) >= len(bucketBools) {
		return false
	}
	return bucketBools[f](m)
}

// BucketLabelCount returns the number of bucket labels.
func (b *Bridge) BucketLabelCount(env BucketEnvelope) int {
	m := b.bucketValue(env)
	if m == nil {
		return 0
	}
	return len(m.Labels)
}

// BucketLabelKey returns the key of label i.
func (b *Bridge) BucketLabelKey(env BucketEnvelope, i int) (string, bool) {
	m := b.bucketValue(env)
	if m == nil || i < 0 || i >= len(m.Labels) {
		return "", false
	}
	return m.Labels[i].Key, true
}

// BucketLabelValue returns the value of label i.
func (b *Bridge) BucketLabelValue(env BucketEnvelope, i int) (string, bool) {
	m := b.bucketValue(env)
	if m == nil || i < 0 || i >= len(m.Labels) {
		return "", false
	}
	return m.Labels[i].Value, true
}

// BucketACLCount returns the number of access control entries.
func (b *Bridge) BucketACLCount(env BucketEnvelope) int {
	m := b.bucketValue(env)
	if m == nil {
		return 0
	}
	return len(m.ACL)
}

// BucketACLEntity returns the entity of access control entry i.
func (b *Bridge) BucketACLEntity(env BucketEnvelope, i int) (string, bool) {
	m := b.bucketValue(env)
	if m == nil || i < 0 || i >= len(m.ACL) || m.ACL[i].Entity == "" {
		return "", false
	}
	return m.ACL[i].Entity, true
}

// BucketACLRole returns the role of access control entry i.
func (b *Bridge) BucketACLRole(env BucketEnvelope, i int) (string, bool) {
	m := b.bucketValue(env)
	if m == nil || i < 0 || i >= len(m.ACL) || m.ACL[i].Role == "" {
		return "", false
	}
	return m.ACL[i].Role, true
}
