package bridge

import (
	"time"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// Every accessor in this file is total. A failure envelope, a released
// envelope, an absent optional sub-record, an unknown field or an out of
// range index all yield the zero sentinel: ("", false) for strings, 0 for
// numbers, the zero time for timestamps and false for booleans.

// ObjectStringField selects a string field of object metadata.
type ObjectStringField int

const (
	ObjectName ObjectStringField = iota
	ObjectBucket
	ObjectID
	ObjectETag
	ObjectSelfLink
	ObjectMediaLink
	ObjectKMSKeyName
	ObjectContentType
	ObjectContentEncoding
	ObjectContentLanguage
	ObjectContentDisposition
	ObjectCacheControl
	ObjectMD5Hash
	ObjectCRC32C
	ObjectStorageClass
	ObjectOwnerEntity
	ObjectOwnerEntityID
	ObjectRetentionMode
)

var objectStrings = [...]func(*provider.ObjectMeta) string{
	ObjectName:               func(m *provider.ObjectMeta) string { return m.Name },
	ObjectBucket:             func(m *provider.ObjectMeta) string { return m.Bucket },
	ObjectID:                 func(m *provider.ObjectMeta) string { return m.ID },
	ObjectETag:               func(m *provider.ObjectMeta) string { return m.ETag },
	ObjectSelfLink:           func(m *provider.ObjectMeta) string { return m.SelfLink },
	ObjectMediaLink:          func(m *provider.ObjectMeta) string { return m.MediaLink },
	ObjectKMSKeyName:         func(m *provider.ObjectMeta) string { return m.KMSKeyName },
	ObjectContentType:        func(m *provider.ObjectMeta) string { return m.ContentType },
	ObjectContentEncoding:    func(m *provider.ObjectMeta) string { return m.ContentEncoding },
	ObjectContentLanguage:    func(m *provider.ObjectMeta) string { return m.ContentLanguage },
	ObjectContentDisposition: func(m *provider.ObjectMeta) string { return m.ContentDisposition },
	ObjectCacheControl:       func(m *provider.ObjectMeta) string { return m.CacheControl },
	ObjectMD5Hash:            func(m *provider.ObjectMeta) string { return m.MD5Hash },
	ObjectCRC32C:             func(m *provider.ObjectMeta) string { return m.CRC32C },
	ObjectStorageClass:       func(m *provider.ObjectMeta) string { return m.StorageClass },
	ObjectOwnerEntity: func(m *provider.ObjectMeta) string {
		if m.Owner == nil {
			return ""
		}
		return m.Owner.Entity
	},
	ObjectOwnerEntityID: func(m *provider.ObjectMeta) string {
		if m.Owner == nil {
			return ""
		}
		return m.Owner.EntityID
	},
	ObjectRetentionMode: func(m *provider.ObjectMeta) string {
		if m.Retention == nil {
			return ""
		}
		return m.Retention.Mode
	},
}

// ObjectUintField selects a numeric field of object metadata.
type ObjectUintField int

const (
	ObjectSize ObjectUintField = iota
	ObjectGeneration
	ObjectMetageneration
	ObjectComponentCount
)

var objectUints = [...]func(*provider.ObjectMeta) uint64{
	ObjectSize:           func(m *provider.ObjectMeta) uint64 { return m.Size },
	ObjectGeneration:     func(m *provider.ObjectMeta) uint64 { return nonNegative(m.Generation) },
	ObjectMetageneration: func(m *provider.ObjectMeta) uint64 { return nonNegative(m.Metageneration) },
	ObjectComponentCount: func(m *provider.ObjectMeta) uint64 { return nonNegative(int64(m.ComponentCount)) },
}

// ObjectTimeField selects a timestamp of object metadata.
type ObjectTimeField int

const (
	ObjectTimeCreated ObjectTimeField = iota
	ObjectUpdated
	ObjectTimeDeleted
	ObjectCustomTime
	ObjectRetentionExpirationTime
	ObjectTimeStorageClassUpdated
	ObjectRetentionRetainUntil
)

var objectTimes = [...]func(*provider.ObjectMeta) time.Time{
	ObjectTimeCreated:             func(m *provider.ObjectMeta) time.Time { return m.TimeCreated },
	ObjectUpdated:                 func(m *provider.ObjectMeta) time.Time { return m.Updated },
	ObjectTimeDeleted:             func(m *provider.ObjectMeta) time.Time { return m.TimeDeleted },
	ObjectCustomTime:              func(m *provider.ObjectMeta) time.Time { return m.CustomTime },
	ObjectRetentionExpirationTime: func(m *provider.ObjectMeta) time.Time { return m.RetentionExpirationTime },
	ObjectTimeStorageClassUpdated: func(m *provider.ObjectMeta) time.Time { return m.TimeStorageClassUpdated },
	ObjectRetentionRetainUntil: func(m *provider.ObjectMeta) time.Time {
		if m.Retention == nil {
			return time.Time{}
		}
		return m.Retention.RetainUntil
	},
}

// ObjectBoolField selects a boolean of object metadata.
type ObjectBoolField int

const (
	ObjectEventBasedHold ObjectBoolField = iota
	ObjectTemporaryHold
	ObjectHasRetention
	ObjectHasOwner
)

var objectBools = [...]func(*provider.ObjectMeta) bool{
	ObjectEventBasedHold: func(m *provider.ObjectMeta) bool { return m.EventBasedHold },
	ObjectTemporaryHold:  func(m *provider.ObjectMeta) bool { return m.TemporaryHold },
	ObjectHasRetention:   func(m *provider.ObjectMeta) bool { return m.Retention != nil },
	ObjectHasOwner:       func(m *provider.ObjectMeta) bool { return m.Owner != nil },
}

// ObjectString returns a string field. The second result is false when the
// field is absent. Empty strings in the metadata schema mean absent.
func (b *Bridge) ObjectString(env ObjectEnvelope, f ObjectStringField) (string, bool) {
	m := b.objectValue(env)
	if m == nil || f < 0 || int(f) >= len(objectStrings) {
		return "", false
	}
	v := objectStrings[f](m)
	return v, v != ""
}

// ObjectUint returns a numeric field, or 0.
func (b *Bridge) ObjectUint(env ObjectEnvelope, f ObjectUintField) uint64 {
	m := b.objectValue(env)
	if m == nil || f < 0 || int(f) >= len(objectUints) {
		return 0
	}
	return objectUints[f](m)
}

// ObjectTime returns a timestamp field, or the zero time.
func (b *Bridge) ObjectTime(env ObjectEnvelope, f ObjectTimeField) time.Time {
	m := b.objectValue(env)
	if m == nil || f < 0 || int(f) >= len(objectTimes) {
		return time.Time{}
	}
	return objectTimes[f](m)
}

// ObjectBool returns a boolean field, or false.
func (b *Bridge) ObjectBool(env ObjectEnvelope, f ObjectBoolField) bool {
	m := b.objectValue(env)
	if m == nil || f < 0 || int(f) >= len(objectBools) {
		return false
	}
	return objectBools[f](m)
}

// ObjectMetadataCount returns the number of user metadata entries.
func (b *Bridge) ObjectMetadataCount(env ObjectEnvelope) int {
	m := b.objectValue(env)
	if m == nil {
		return 0
	}
	return len(m.Metadata)
}

// ObjectMetadataKey returns the key of user metadata entry i.
func (b *Bridge) ObjectMetadataKey(env ObjectEnvelope, i int) (string, bool) {
	e, ok := b.objectMetadataEntry(env, i)
	return e.Key, ok
}

// ObjectMetadataValue returns the value of user metadata entry i. An empty
// value is present and reported with true.
func (b *Bridge) ObjectMetadataValue(env ObjectEnvelope, i int) (string, bool) {
	e, ok := b.objectMetadataEntry(env, i)
	return e.Value, ok
}

// ObjectMetadataValueBytes returns a copy of the raw value bytes of user
// metadata entry i. Use it when values may contain NUL bytes.
func (b *Bridge) ObjectMetadataValueBytes(env ObjectEnvelope, i int) ([]byte, bool) {
	e, ok := b.objectMetadataEntry(env, i)
	if !ok {
		return nil, false
	}
	return []byte(e.Value), true
}

func (b *Bridge) objectMetadataEntry(env ObjectEnvelope, i int) (provider.MetadataEntry, bool) {
	m := b.objectValue(env)
	if m == nil || i < 0 || i >= len(m.Metadata) {
		return provider.MetadataEntry{}, false
	}
	return m.Metadata[i], true
}

// ObjectACLCount returns the number of access control entries.
func (b *Bridge) ObjectACLCount(env ObjectEnvelope) int {
	m := b.objectValue(env)
	if m == nil {
		return 0
	}
	return len(m.ACL)
}

// ObjectACLEntity returns the entity of access control entry i.
func (b *Bridge) ObjectACLEntity(env ObjectEnvelope, i int) (string, bool) {
	r, ok := b.objectACLRule(env, i)
	return r.Entity, ok && r.Entity != ""
}

// ObjectACLRole returns the role of access control entry i.
func (b *Bridge) ObjectACLRole(env ObjectEnvelope, i int) (string, bool) {
	r, ok := b.objectACLRule(env, i)
	return r.Role, ok && r.Role != ""
}

func (b *Bridge) objectACLRule(env ObjectEnvelope, i int) (provider.ACLRule, bool) {
	m := b.objectValue(env)
	if m == nil || i < 0 || i >= len(m.ACL) {
		return provider.ACLRule{}, false
	}
	return m.ACL[i], true
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// UnixNano converts an accessor timestamp to Unix nanoseconds, mapping the
// zero time to 0 (the epoch).
func UnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
