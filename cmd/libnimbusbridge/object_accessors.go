package main

/*
#include "shim.h"
*/
import "C"

import (
	"unsafe"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

// Object metadata accessors. They are total: on a failure or released
// envelope, or for an absent field, strings are NULL, numbers 0, timestamps 0
// and booleans 0. Timestamps are Unix nanoseconds. Every returned string is
// an independent copy released with shimFree; it stays valid after the
// envelope is freed.

//export shimObjectMetadataIsOk
func shimObjectMetadataIsOk(md C.ShimObjectMetadata) C.int {
	return cBool(instance().IsObjectOk(objectEnvelope(md)))
}

//export shimObjectMetadataStatusCode
func shimObjectMetadataStatusCode(md C.ShimObjectMetadata) C.int {
	return C.int(instance().StatusCode(objectEnvelope(md).Status))
}

//export shimObjectMetadataStatusMessage
func shimObjectMetadataStatusMessage(md C.ShimObjectMetadata) *C.char {
	return cString(instance().StatusMessage(objectEnvelope(md).Status))
}

//export shimObjectMetadataName
func shimObjectMetadataName(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectName))
}

//export shimObjectMetadataBucket
func shimObjectMetadataBucket(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectBucket))
}

//export shimObjectMetadataId
func shimObjectMetadataId(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectID))
}

//export shimObjectMetadataEtag
func shimObjectMetadataEtag(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectETag))
}

//export shimObjectMetadataSelfLink
func shimObjectMetadataSelfLink(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectSelfLink))
}

//export shimObjectMetadataMediaLink
func shimObjectMetadataMediaLink(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectMediaLink))
}

//export shimObjectMetadataKmsKeyName
func shimObjectMetadataKmsKeyName(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectKMSKeyName))
}

//export shimObjectMetadataContentType
func shimObjectMetadataContentType(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectContentType))
}

//export shimObjectMetadataContentEncoding
func shimObjectMetadataContentEncoding(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectContentEncoding))
}

//export shimObjectMetadataContentLanguage
func shimObjectMetadataContentLanguage(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectContentLanguage))
}

//export shimObjectMetadataContentDisposition
func shimObjectMetadataContentDisposition(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectContentDisposition))
}

//export shimObjectMetadataCacheControl
func shimObjectMetadataCacheControl(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectCacheControl))
}

//export shimObjectMetadataMd5Hash
func shimObjectMetadataMd5Hash(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectMD5Hash))
}

//export shimObjectMetadataCrc32c
func shimObjectMetadataCrc32c(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectCRC32C))
}

//export shimObjectMetadataStorageClass
func shimObjectMetadataStorageClass(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectStorageClass))
}

//export shimObjectMetadataOwnerEntity
func shimObjectMetadataOwnerEntity(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectOwnerEntity))
}

//export shimObjectMetadataOwnerEntityId
func shimObjectMetadataOwnerEntityId(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectOwnerEntityID))
}

//export shimObjectMetadataRetentionMode
func shimObjectMetadataRetentionMode(md C.ShimObjectMetadata) *C.char {
	return cString(instance().ObjectString(objectEnvelope(md), bridge.ObjectRetentionMode))
}

//export shimObjectMetadataSize
func shimObjectMetadataSize(md C.ShimObjectMetadata) C.uint64_t {
	return C.uint64_t(instance().ObjectUint(objectEnvelope(md), bridge.ObjectSize))
}

//export shimObjectMetadataGeneration
func shimObjectMetadataGeneration(md C.ShimObjectMetadata) C.uint64_t {
	return C.uint64_t(instance().ObjectUint(objectEnvelope(md), bridge.ObjectGeneration))
}

//export shimObjectMetadataMetageneration
func shimObjectMetadataMetageneration(md C.ShimObjectMetadata) C.uint64_t {
	return C.uint64_t(instance().ObjectUint(objectEnvelope(md), bridge.ObjectMetageneration))
}

//export shimObjectMetadataComponentCount
func shimObjectMetadataComponentCount(md C.ShimObjectMetadata) C.uint64_t {
	return C.uint64_t(instance().ObjectUint(objectEnvelope(md), bridge.ObjectComponentCount))
}

//export shimObjectMetadataTimeCreated
func shimObjectMetadataTimeCreated(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectTimeCreated)))
}

//export shimObjectMetadataUpdated
func shimObjectMetadataUpdated(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectUpdated)))
}

//export shimObjectMetadataTimeDeleted
func shimObjectMetadataTimeDeleted(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectTimeDeleted)))
}

//export shimObjectMetadataCustomTime
func shimObjectMetadataCustomTime(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectCustomTime)))
}

//export shimObjectMetadataRetentionExpirationTime
func shimObjectMetadataRetentionExpirationTime(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectRetentionExpirationTime)))
}

//export shimObjectMetadataTimeStorageClassUpdated
func shimObjectMetadataTimeStorageClassUpdated(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectTimeStorageClassUpdated)))
}

//export shimObjectMetadataRetentionRetainUntil
func shimObjectMetadataRetentionRetainUntil(md C.ShimObjectMetadata) C.int64_t {
	return C.int64_t(bridge.UnixNano(instance().ObjectTime(objectEnvelope(md), bridge.ObjectRetentionRetainUntil)))
}

//export shimObjectMetadataEventBasedHold
func shimObjectMetadataEventBasedHold(md C.ShimObjectMetadata) C.int {
	return cBool(instance().ObjectBool(objectEnvelope(md), bridge.ObjectEventBasedHold))
}

//export shimObjectMetadataTemporaryHold
func shimObjectMetadataTemporaryHold(md C.ShimObjectMetadata) C.int {
	return cBool(instance().ObjectBool(objectEnvelope(md), bridge.ObjectTemporaryHold))
}

//export shimObjectMetadataHasRetention
func shimObjectMetadataHasRetention(md C.ShimObjectMetadata) C.int {
	return cBool(instance().ObjectBool(objectEnvelope(md), bridge.ObjectHasRetention))
}

//export shimObjectMetadataHasOwner
func shimObjectMetadataHasOwner(md C.ShimObjectMetadata) C.int {
	return cBool(instance().ObjectBool(objectEnvelope(md), bridge.ObjectHasOwner))
}

//export shimObjectMetadataUserMetadataCount
func shimObjectMetadataUserMetadataCount(md C.ShimObjectMetadata) C.int {
	return C.int(instance().ObjectMetadataCount(objectEnvelope(md)))
}

//export shimObjectMetadataUserMetadataKey
func shimObjectMetadataUserMetadataKey(md C.ShimObjectMetadata, index C.int) *C.char {
	return cString(instance().ObjectMetadataKey(objectEnvelope(md), int(index)))
}

//export shimObjectMetadataUserMetadataValue
func shimObjectMetadataUserMetadataValue(md C.ShimObjectMetadata, index C.int) *C.char {
	return cString(instance().ObjectMetadataValue(objectEnvelope(md), int(index)))
}

// shimObjectMetadataUserMetadataValueBytes returns the value with its length,
// for values that may contain NUL bytes. Release with shimFreeBytes.
//
//export shimObjectMetadataUserMetadataValueBytes
func shimObjectMetadataUserMetadataValueBytes(md C.ShimObjectMetadata, index C.int, length *C.size_t) unsafe.Pointer {
	if length != nil {
		*length = 0
	}
	data, ok := instance().ObjectMetadataValueBytes(objectEnvelope(md), int(index))
	if !ok {
		return nil
	}
	if length != nil {
		*length = C.size_t(len(data))
	}
	return C.CBytes(data)
}

//export shimObjectMetadataAclCount
func shimObjectMetadataAclCount(md C.ShimObjectMetadata) C.int {
	return C.int(instance().ObjectACLCount(objectEnvelope(md)))
}

//export shimObjectMetadataAclEntity
func shimObjectMetadataAclEntity(md C.ShimObjectMetadata, index C.int) *C.char {
	return cString(instance().ObjectACLEntity(objectEnvelope(md), int(index)))
}

//export shimObjectMetadataAclRole
func shimObjectMetadataAclRole(md C.ShimObjectMetadata, index C.int) *C.char {
	return cString(instance().ObjectACLRole(objectEnvelope(md), int(index)))
}
