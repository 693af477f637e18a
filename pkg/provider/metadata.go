package provider

import (
	"sort"
	"time"
)

// ObjectMeta is the full metadata record for one object.
//
// Values are immutable once returned by a Client. Zero values mean the field
// is absent; optional sub-records are nil when absent.
type ObjectMeta struct {
	Name       string
	Bucket     string
	ID         string
	ETag       string
	SelfLink   string
	MediaLink  string
	KMSKeyName string

	ContentType        string
	ContentEncoding    string
	ContentLanguage    string
	ContentDisposition string
	CacheControl       string

	// MD5Hash and CRC32C are base64 encoded, as in the GCS JSON API.
	MD5Hash string
	CRC32C  string

	StorageClass string

	Size           uint64
	Generation     int64
	Metageneration int64
	ComponentCount int32

	TimeCreated             time.Time
	Updated                 time.Time
	TimeDeleted             time.Time
	CustomTime              time.Time
	RetentionExpirationTime time.Time
	TimeStorageClassUpdated time.Time

	EventBasedHold bool
	TemporaryHold  bool

	// Metadata holds user-supplied key/value pairs sorted by key.
	Metadata []MetadataEntry

	ACL []ACLRule

	Owner     *Owner
	Retention *ObjectRetention
}

// MetadataEntry is one user-supplied key/value pair.
type MetadataEntry struct {
	Key   string
	Value string
}

// ACLRule is one access-control entry.
type ACLRule struct {
	Entity string
	Role   string
}

// Owner identifies the owner of an object or bucket.
type Owner struct {
	Entity   string
	EntityID string
}

// ObjectRetention is the per-object retention configuration.
type ObjectRetention struct {
	Mode        string
	RetainUntil time.Time
}

// BucketMeta is the full metadata record for one bucket.
type BucketMeta struct {
	Name         string
	ID           string
	ETag         string
	SelfLink     string
	Location     string
	LocationType string
	StorageClass string

	ProjectNumber  uint64
	Metageneration int64

	TimeCreated time.Time
	Updated     time.Time

	Versioning            bool
	DefaultEventBasedHold bool

	// Labels are sorted by key.
	Labels []MetadataEntry

	ACL []ACLRule

	Owner           *Owner
	RetentionPolicy *RetentionPolicy
}

// RetentionPolicy is a bucket-level retention policy.
type RetentionPolicy struct {
	Period        time.Duration
	EffectiveTime time.Time
	IsLocked      bool
}

// SortedEntries converts a map into entries ordered by key.
// A nil or empty map yields nil.
func SortedEntries(m map[string]string) []MetadataEntry {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]MetadataEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, MetadataEntry{Key: k, Value: m[k]})
	}
	return entries
}

// EntriesMap converts entries back into a map.
func EntriesMap(entries []MetadataEntry) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}
