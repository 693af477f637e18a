package main

/*
#include "shim.h"
*/
import "C"

import (
	"unsafe"

	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

func clientHandle(c C.ShimClient) bridge.ClientHandle {
	return bridge.ClientHandle(c.handle)
}

func shimClient(h bridge.ClientHandle) C.ShimClient {
	return C.ShimClient{handle: C.uint64_t(h)}
}

func writerHandle(w C.ShimObjectWriteStream) bridge.WriterHandle {
	return bridge.WriterHandle(w.handle)
}

func shimWriter(h bridge.WriterHandle) C.ShimObjectWriteStream {
	return C.ShimObjectWriteStream{handle: C.uint64_t(h)}
}

func objectEnvelope(md C.ShimObjectMetadata) bridge.ObjectEnvelope {
	return bridge.ObjectEnvelope{Status: handle.Handle(md.status), Value: handle.Handle(md.value)}
}

func shimObject(env bridge.ObjectEnvelope) C.ShimObjectMetadata {
	return C.ShimObjectMetadata{status: C.uint64_t(env.Status), value: C.uint64_t(env.Value)}
}

func bucketEnvelope(md C.ShimBucketMetadata) bridge.BucketEnvelope {
	return bridge.BucketEnvelope{Status: handle.Handle(md.status), Value: handle.Handle(md.value)}
}

func shimBucket(env bridge.BucketEnvelope) C.ShimBucketMetadata {
	return C.ShimBucketMetadata{status: C.uint64_t(env.Status), value: C.uint64_t(env.Value)}
}

func objectCallback(cb C.ShimObjectCallback) bridge.ObjectCallback {
	if cb == nil {
		return nil
	}
	return func(env bridge.ObjectEnvelope) {
		C.shimInvokeObjectCallback(cb, shimObject(env))
	}
}

func bucketCallback(cb C.ShimBucketCallback) bridge.BucketCallback {
	if cb == nil {
		return nil
	}
	return func(env bridge.BucketEnvelope) {
		C.shimInvokeBucketCallback(cb, shimBucket(env))
	}
}

// cString returns a caller-owned copy, or NULL when the value is absent.
func cString(s string, ok bool) *C.char {
	if !ok {
		return nil
	}
	return C.CString(s)
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func bucketOptions(opts *C.ShimBucketOptions) bridge.BucketOptions {
	if opts == nil {
		return bridge.BucketOptions{}
	}
	out := bridge.BucketOptions{
		Location:     C.GoString(opts.location),
		StorageClass: C.GoString(opts.storage_class),
		Versioning:   opts.versioning != 0,
		ObjectLock:   opts.object_lock != 0,
	}
	if opts.labels != nil && opts.label_count > 0 {
		labels := unsafe.Slice((*C.ShimLabel)(unsafe.Pointer(opts.labels)), int(opts.label_count))
		out.Labels = make(map[string]string, len(labels))
		for _, l := range labels {
			if l.key == nil {
				continue
			}
			out.Labels[C.GoString(l.key)] = C.GoString(l.value)
		}
	}
	return out
}
