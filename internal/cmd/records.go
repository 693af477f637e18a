package cmd

import (
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/output"
)

// objectRecord reads a successful object envelope through the accessor
// surface, the same way a foreign caller of the library would.
func objectRecord(b *bridge.Bridge, env bridge.ObjectEnvelope) *output.ObjectRecord {
	str := func(f bridge.ObjectStringField) string {
		v, _ := b.ObjectString(env, f)
		return v
	}

	rec := &output.ObjectRecord{
		Bucket:       str(bridge.ObjectBucket),
		Name:         str(bridge.ObjectName),
		Size:         b.ObjectUint(env, bridge.ObjectSize),
		Generation:   b.ObjectUint(env, bridge.ObjectGeneration),
		ETag:         str(bridge.ObjectETag),
		MD5Hash:      str(bridge.ObjectMD5Hash),
		CRC32C:       str(bridge.ObjectCRC32C),
		ContentType:  str(bridge.ObjectContentType),
		StorageClass: str(bridge.ObjectStorageClass),
		TimeCreated:  b.ObjectTime(env, bridge.ObjectTimeCreated),
		Updated:      b.ObjectTime(env, bridge.ObjectUpdated),
	}

	if n := b.ObjectMetadataCount(env); n > 0 {
		rec.Metadata = make(map[string]string, n)
		for i := 0; i < n; i++ {
			k, _ := b.ObjectMetadataKey(env, i)
			v, _ := b.ObjectMetadataValue(env, i)
			rec.Metadata[k] = v
		}
	}
	for i := 0; i < b.ObjectACLCount(env); i++ {
		entity, _ := b.ObjectACLEntity(env, i)
		role, _ := b.ObjectACLRole(env, i)
		rec.ACL = append(rec.ACL, output.ACLRecord{Entity: entity, Role: role})
	}
	return rec
}

func bucketRecord(b *bridge.Bridge, env bridge.BucketEnvelope) *output.BucketRecord {
	str := func(f bridge.BucketStringField) string {
		v, _ := b.BucketString(env, f)
		return v
	}

	rec := &output.BucketRecord{
		Name:         str(bridge.BucketName),
		Location:     str(bridge.BucketLocation),
		StorageClass: str(bridge.BucketStorageClass),
		Versioning:   b.BucketBool(env, bridge.BucketVersioning),
		TimeCreated:  b.BucketTime(env, bridge.BucketTimeCreated),
	}

	if n := b.BucketLabelCount(env); n > 0 {
		rec.Labels = make(map[string]string, n)
		for i := 0; i < n; i++ {
			k, _ := b.BucketLabelKey(env, i)
			v, _ := b.BucketLabelValue(env, i)
			rec.Labels[k] = v
		}
	}
	for i := 0; i < b.BucketACLCount(env); i++ {
		entity, _ := b.BucketACLEntity(env, i)
		role, _ := b.BucketACLRole(env, i)
		rec.ACL = append(rec.ACL, output.ACLRecord{Entity: entity, Role: role})
	}
	return rec
}
