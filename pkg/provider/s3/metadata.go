package s3

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// objectMetaFromHead maps a HeadObject response onto the metadata schema.
//
// S3 has no generation counter; the last-modified time in microseconds is
// used instead, which is also how GCS derives generations. Legal hold maps to
// the temporary hold and object lock maps to the retention block.
func objectMetaFromHead(bucket, key string, out *s3.HeadObjectOutput) *provider.ObjectMeta {
	lastModified := aws.ToTime(out.LastModified)
	etag := cleanETag(aws.ToString(out.ETag))

	meta := &provider.ObjectMeta{
		Name:               key,
		Bucket:             bucket,
		ETag:               etag,
		KMSKeyName:         aws.ToString(out.SSEKMSKeyId),
		ContentType:        aws.ToString(out.ContentType),
		ContentEncoding:    aws.ToString(out.ContentEncoding),
		ContentLanguage:    aws.ToString(out.ContentLanguage),
		ContentDisposition: aws.ToString(out.ContentDisposition),
		CacheControl:       aws.ToString(out.CacheControl),
		MD5Hash:            md5FromETag(etag),
		CRC32C:             aws.ToString(out.ChecksumCRC32C),
		StorageClass:       string(out.StorageClass),
		Metageneration:     1,
		ComponentCount:     aws.ToInt32(out.PartsCount),
		TimeCreated:        lastModified,
		Updated:            lastModified,
		TemporaryHold:      out.ObjectLockLegalHoldStatus == types.ObjectLockLegalHoldStatusOn,
		Metadata:           provider.SortedEntries(out.Metadata),
	}
	if out.ContentLength != nil && *out.ContentLength > 0 {
		meta.Size = uint64(*out.ContentLength)
	}
	if meta.StorageClass == "" {
		meta.StorageClass = string(types.StorageClassStandard)
	}
	if !lastModified.IsZero() {
		meta.Generation = lastModified.UnixMicro()
	}
	meta.ID = fmt.Sprintf("%s/%s/%d", bucket, key, meta.Generation)

	if out.ObjectLockMode != "" || out.ObjectLockRetainUntilDate != nil {
		meta.Retention = &provider.ObjectRetention{
			Mode:        string(out.ObjectLockMode),
			RetainUntil: aws.ToTime(out.ObjectLockRetainUntilDate),
		}
		meta.RetentionExpirationTime = meta.Retention.RetainUntil
	}

	return meta
}

// md5FromETag returns the base64 MD5 digest for single-part uploads.
// Multipart and SSE-KMS ETags are not content digests and yield "".
func md5FromETag(etag string) string {
	if len(etag) != 32 || strings.Contains(etag, "-") {
		return ""
	}
	raw, err := hex.DecodeString(etag)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func ownerFromS3(o *types.Owner) *provider.Owner {
	if o == nil || aws.ToString(o.ID) == "" {
		return nil
	}
	return &provider.Owner{
		Entity:   "user-" + aws.ToString(o.ID),
		EntityID: aws.ToString(o.ID),
	}
}

// aclFromGrants converts S3 grants into entity/role pairs using GCS entity
// naming (user-<id>, allUsers, allAuthenticatedUsers, group-<uri>).
func aclFromGrants(grants []types.Grant) []provider.ACLRule {
	if len(grants) == 0 {
		return nil
	}
	rules := make([]provider.ACLRule, 0, len(grants))
	for _, g := range grants {
		if g.Grantee == nil {
			continue
		}
		rules = append(rules, provider.ACLRule{
			Entity: granteeEntity(g.Grantee),
			Role:   roleFromPermission(g.Permission),
		})
	}
	return rules
}

func granteeEntity(g *types.Grantee) string {
	switch g.Type {
	case types.TypeGroup:
		uri := aws.ToString(g.URI)
		switch {
		case strings.HasSuffix(uri, "/AllUsers"):
			return "allUsers"
		case strings.HasSuffix(uri, "/AuthenticatedUsers"):
			return "allAuthenticatedUsers"
		}
		return "group-" + uri
	case types.TypeAmazonCustomerByEmail:
		return "user-" + aws.ToString(g.EmailAddress)
	default:
		return "user-" + aws.ToString(g.ID)
	}
}

func roleFromPermission(p types.Permission) string {
	switch p {
	case types.PermissionFullControl:
		return "OWNER"
	case types.PermissionRead:
		return "READER"
	case types.PermissionWrite:
		return "WRITER"
	}
	return string(p)
}

func retentionPolicyFromLock(cfg *types.ObjectLockConfiguration) *provider.RetentionPolicy {
	if cfg == nil || cfg.Rule == nil || cfg.Rule.DefaultRetention == nil {
		return nil
	}
	dr := cfg.Rule.DefaultRetention
	var period time.Duration
	switch {
	case aws.ToInt32(dr.Days) > 0:
		period = time.Duration(aws.ToInt32(dr.Days)) * 24 * time.Hour
	case aws.ToInt32(dr.Years) > 0:
		period = time.Duration(aws.ToInt32(dr.Years)) * 365 * 24 * time.Hour
	default:
		return nil
	}
	return &provider.RetentionPolicy{
		Period:   period,
		IsLocked: dr.Mode == types.ObjectLockRetentionModeCompliance,
	}
}

func tagsFromLabels(labels map[string]string) []types.Tag {
	tags := make([]types.Tag, 0, len(labels))
	for k, v := range labels {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	sort.Slice(tags, func(i, j int) bool { return aws.ToString(tags[i].Key) < aws.ToString(tags[j].Key) })
	return tags
}

func labelsFromTags(tags []types.Tag) []provider.MetadataEntry {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return provider.SortedEntries(m)
}
