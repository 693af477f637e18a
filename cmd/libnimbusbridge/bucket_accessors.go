package main

/*
#include "shim.h"
*/
import "C"

import (
	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

// Bucket metadata accessors, with the same sentinels and string ownership as
// the object accessors.

//export shimBucketMetadataIsOk
func shimBucketMetadataIsOk(md C.ShimBucketMetadata) C.int {
	return cBool(instance().IsBucketOk(bucketEnvelope(md)))
}

//export shimBucketMetadataStatusCode
func shimBucketMetadataStatusCode(md C.ShimBucketMetadata) C.int {
	return C.int(instance().StatusCode(bucketEnvelope(md).Status))
}

//export shimBucketMetadataStatusMessage
func shimBucketMetadataStatusMessage(md C.ShimBucketMetadata) *C.char {
	return cString(instance().StatusMessage(bucketEnvelope(md).Status))
}

//export shimBucketMetadataName
func shimBucketMetadataName(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketName))
}

//export shimBucketMetadataId
func shimBucketMetadataId(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketID))
}

//export shimBucketMetadataEtag
func shimBucketMetadataEtag(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketETag))
}

//export shimBucketMetadataSelfLink
func shimBucketMetadataSelfLink(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketSelfLink))
}

//export shimBucketMetadataLocation
func shimBucketMetadataLocation(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketLocation))
}

//export shimBucketMetadataLocationType
func shimBucketMetadataLocationType(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketLocationType))
}

//export shimBucketMetadataStorageClass
func shimBucketMetadataStorageClass(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketStorageClass))
}

//export shimBucketMetadataOwnerEntity
func shimBucketMetadataOwnerEntity(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketOwnerEntity))
}

//export shimBucketMetadataOwnerEntityId
func shimBucketMetadataOwnerEntityId(md C.ShimBucketMetadata) *C.char {
	return cString(instance().BucketString(bucketEnvelope(md), bridge.BucketOwnerEntityID))
}

//export shimBucketMetadataProjectNumber
func shimBucketMetadataProjectNumber(md C.ShimBucketMetadata) C.uint64_t {
	return C.uint64_t(instance().BucketUint(bucketEnvelope(md), bridge.BucketProjectNumber))
}

//export shimBucketMetadataMetageneration
func shimBucketMetadataMetageneration(md C.ShimBucketMetadata) C.uint64_t {
	return C.uint64_t(instance().BucketUint(bucketEnvelope(md), bridge.BucketMetageneration))
}

//export shimBucketMetadataRetentionPeriod
func shimBucketMetadataRetentionPeriod(md C.ShimBucketMetadata) C.uint64_t {
	return C.uint64_t(instance().BucketUint(bucketEnvelope(md), bridge.BucketRetentionPeriodSeconds))
}

//export shimBucketMetadataTimeCreated
func shimBucketMetadataTimeCreated(md C.ShimBucketMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().BucketTime(bucketEnvelope(md), bridge.BucketTimeCreated)))
}

//export shimBucketMetadataUpdated
func shimBucketMetadataUpdated(md C.ShimBucketMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().BucketTime(bucketEnvelope(md), bridge.BucketUpdated)))
}

//export shimBucketMetadataRetentionEffectiveTime
func shimBucketMetadataRetentionEffectiveTime(md C.ShimBucketMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().BucketTime(bucketEnvelope(md), bridge.BucketRetentionEffectiveTime)))
}

//export shimBucketMetadataVersioning
func shimBucketMetadataVersioning(md C.ShimBucketMetadata) C.int {
	return cBool(instance().BucketBool(bucketEnvelope(md), bridge.BucketVersioning))
}

//export shimBucketMetadataDefaultEventBasedHold
func shimBucketMetadataDefaultEventBasedHold(md C.ShimBucketMetadata) C.int {
	return cBool(instance().BucketBool(bucketEnvelope(md), bridge.BucketDefaultEventBasedHold))
}

//export shimBucketMetadataHasRetentionPolicy
func shimBucketMetadataHasRetentionPolicy(md C.ShimBucketMetadata) C.int {
	return cBool(instance().BucketBool(bucketEnvelope(md), bridge.BucketHasRetentionPolicy))
}

//export shimBucketMetadataRetentionPolicyLocked
func shimBucketMetadataRetentionPolicyLocked(md C.ShimBucketMetadata) C.int {
	return cBool(instance().BucketBool(bucketEnvelope(md), bridge.BucketRetentionPolicyLocked))
}

//export shimBucketMetadataLabelCount
func shimBucketMetadataLabelCount(md C.ShimBucketMetadata) C.int {
	return C.int(instance().BucketLabelCount(bucketEnvelope(md)))
}

//export shimBucketMetadataLabelKey
func shimBucketMetadataLabelKey(md C.ShimBucketMetadata, index C.int) *C.char {
	return cString(instance().BucketLabelKey(bucketEnvelope(md), int(index)))
}

//export shimBucketMetadataLabelValue
func shimBucketMetadataLabelValue(md C.ShimBucketMetadata, index C.int) *C.char {
	return cString(instance().BucketLabelValue(bucketEnvelope(md), int(index)))
}

//export shimBucketMetadataAclCount
func shimBucketMetadataAclCount(md C.ShimBucketMetadata) C.int {
	return C.int(instance().BucketACLCount(bucketEnvelope(md)))
}

//export shimBucketMetadataAclEntity
func shimBucketMetadataAclEntity(md C.ShimBucketMetadata, index C.int) *C.char {
	return cString(instance().BucketACLEntity(bucketEnvelope(md), int(index)))
}

//export shimBucketMetadataAclRole
func shimBucketMetadataAclRole(md C.ShimBucketMetadata, index C.int) *C.char {
	return cString(instance().BucketACLRole(bucketEnvelope(md), int(index)))
}
