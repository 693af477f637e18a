package main

/*
#include "shim.h"
*/
import "C"

import (
	"unsafe"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

// Go-typed drivers for the exported C entry points. cgo is unavailable in
// _test.go files, so the tests reach the boundary through these.

type cLabel struct {
	key, value string
	nilKey     bool
}

// callWriteChunk passes data to writeChunk as C memory. A nil data slice is
// passed as a NULL pointer with the given size.
func callWriteChunk(w bridge.WriterHandle, data []byte, size int) int {
	var p *C.char
	if data != nil {
		p = (*C.char)(C.CBytes(data))
		defer C.free(unsafe.Pointer(p))
	}
	return int(writeChunk(shimWriter(w), p, C.int(size)))
}

// takeCString copies and frees a string returned across the boundary.
func takeCString(p *C.char) (string, bool) {
	if p == nil {
		return "", false
	}
	defer shimFree(p)
	return C.GoString(p), true
}

func callCString(s string, ok bool) (string, bool) {
	return takeCString(cString(s, ok))
}

func callObjectName(env bridge.ObjectEnvelope) (string, bool) {
	return takeCString(shimObjectMetadataName(shimObject(env)))
}

func callObjectContentType(env bridge.ObjectEnvelope) (string, bool) {
	return takeCString(shimObjectMetadataContentType(shimObject(env)))
}

func callObjectSize(env bridge.ObjectEnvelope) uint64 {
	return uint64(shimObjectMetadataSize(shimObject(env)))
}

// callBucketOptions builds a ShimBucketOptions in C memory and converts it.
// A nil labels slice leaves the label array NULL while labelCount is still
// reported.
func callBucketOptions(location string, labels []cLabel, labelCount int, versioning bool) bridge.BucketOptions {
	opts := (*C.ShimBucketOptions)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ShimBucketOptions{}))))
	defer C.free(unsafe.Pointer(opts))

	if location != "" {
		opts.location = C.CString(location)
		defer C.free(unsafe.Pointer(opts.location))
	}
	if versioning {
		opts.versioning = 1
	}
	opts.label_count = C.int(labelCount)

	if labels != nil {
		arr := (*C.ShimLabel)(C.calloc(C.size_t(len(labels)+1), C.size_t(unsafe.Sizeof(C.ShimLabel{}))))
		defer C.free(unsafe.Pointer(arr))
		slots := unsafe.Slice(arr, len(labels)+1)
		for i, l := range labels {
			if !l.nilKey {
				slots[i].key = C.CString(l.key)
				defer C.free(unsafe.Pointer(slots[i].key))
			}
			slots[i].value = C.CString(l.value)
			defer C.free(unsafe.Pointer(slots[i].value))
		}
		opts.labels = arr
	}
	return bucketOptions(opts)
}

func callNilBucketOptions() bridge.BucketOptions {
	return bucketOptions(nil)
}
