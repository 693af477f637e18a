package main

/*
#include "shim.h"
*/
import "C"

import (
	"context"
	"encoding/json"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/internal/server"
	"github.com/3leaps/nimbusbridge/internal/server/handlers"
)

//export createClient
func createClient() C.ShimClient {
	return shimClient(instance().CreateClient())
}

// createClientWithStatus reports the construction failure through code and
// message. The message is released with shimFree.
//
//export createClientWithStatus
func createClientWithStatus(code *C.int, message **C.char) C.ShimClient {
	h, st := instance().CreateClientWithStatus()
	if code != nil {
		*code = 0
	}
	if message != nil {
		*message = nil
	}
	if st != nil {
		if code != nil {
			*code = C.int(st.Code())
		}
		if message != nil {
			*message = C.CString(st.Message())
		}
	}
	return shimClient(h)
}

//export destroyClient
func destroyClient(client C.ShimClient) {
	instance().DestroyClient(clientHandle(client))
}

//export createBucket
func createBucket(client C.ShimClient, bucketName *C.char, callback C.ShimBucketCallback) {
	instance().CreateBucket(clientHandle(client), C.GoString(bucketName), bucketCallback(callback))
}

//export createBucketWithOptions
func createBucketWithOptions(client C.ShimClient, bucketName *C.char, options *C.ShimBucketOptions, callback C.ShimBucketCallback) {
	instance().CreateBucketWithOptions(clientHandle(client), C.GoString(bucketName), bucketOptions(options), bucketCallback(callback))
}

//export getBucketMetadata
func getBucketMetadata(client C.ShimClient, bucketName *C.char, callback C.ShimBucketCallback) {
	instance().GetBucketMetadata(clientHandle(client), C.GoString(bucketName), bucketCallback(callback))
}

//export uploadFile
func uploadFile(client C.ShimClient, path, bucketName, objectName *C.char, callback C.ShimObjectCallback) {
	instance().UploadFile(clientHandle(client), C.GoString(path), C.GoString(bucketName), C.GoString(objectName), objectCallback(callback))
}

//export getObjectMetadata
func getObjectMetadata(client C.ShimClient, bucketName, objectName *C.char, callback C.ShimObjectCallback) {
	instance().GetObjectMetadata(clientHandle(client), C.GoString(bucketName), C.GoString(objectName), objectCallback(callback))
}

//export writeObject
func writeObject(client C.ShimClient, bucketName, objectName *C.char) C.ShimObjectWriteStream {
	return shimWriter(instance().WriteObject(clientHandle(client), C.GoString(bucketName), C.GoString(objectName)))
}

// writeChunk passes data straight to the stream. The buffer only needs to
// stay valid for the duration of the call.
//
//export writeChunk
func writeChunk(writer C.ShimObjectWriteStream, data *C.char, size C.int) C.int {
	if size < 0 || (data == nil && size > 0) {
		return 0
	}
	var buf []byte
	if size > 0 {
		buf = unsafe.Slice((*byte)(unsafe.Pointer(data)), int(size))
	}
	return cBool(instance().WriteChunk(writerHandle(writer), buf))
}

//export closeWriter
func closeWriter(writer C.ShimObjectWriteStream) C.ShimObjectMetadata {
	return shimObject(instance().CloseWriter(writerHandle(writer)))
}

//export destroyWriter
func destroyWriter(writer C.ShimObjectWriteStream) {
	instance().DestroyWriter(writerHandle(writer))
}

//export freeShimObjectMetadata
func freeShimObjectMetadata(metadata C.ShimObjectMetadata) {
	instance().FreeObjectEnvelope(objectEnvelope(metadata))
}

//export freeShimBucketMetadata
func freeShimBucketMetadata(metadata C.ShimBucketMetadata) {
	instance().FreeBucketEnvelope(bucketEnvelope(metadata))
}

//export shimFree
func shimFree(p *C.char) {
	C.free(unsafe.Pointer(p))
}

//export shimFreeBytes
func shimFreeBytes(p unsafe.Pointer) {
	C.free(p)
}

// shimWaitIdle blocks until no asynchronous operation is in flight or the
// timeout elapses. A non-positive timeout waits indefinitely. Returns 1 when
// idle.
//
//export shimWaitIdle
func shimWaitIdle(timeoutMillis C.int64_t) C.int {
	ctx := context.Background()
	if timeoutMillis > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMillis)*time.Millisecond)
		defer cancel()
	}
	return cBool(instance().Drain(ctx) == nil)
}

// shimHandleStats returns live handle counts and in-flight operations as a
// JSON document released with shimFree.
//
//export shimHandleStats
func shimHandleStats() *C.char {
	data, err := json.Marshal(instance().Stats())
	if err != nil {
		return nil
	}
	return C.CString(string(data))
}

var (
	adminMu  sync.Mutex
	adminSrv *server.Server
)

// shimStartAdminServer serves health, metrics and handle diagnostics on
// host:port. It returns the bound port, or -1 on failure. Calling it again
// returns the running server's port.
//
//export shimStartAdminServer
func shimStartAdminServer(host *C.char, port C.int) C.int {
	b := instance()

	adminMu.Lock()
	defer adminMu.Unlock()
	if adminSrv != nil {
		return C.int(adminSrv.Port())
	}

	if handlers.GetHealthManager() == nil {
		handlers.InitHealthManager(libraryVersion)
	}
	srv := server.New(C.GoString(host), int(port)).WithLogger(logger).WithBridge(b)
	if observability.PrometheusExporter != nil {
		srv = srv.WithMetrics(observability.PrometheusExporter)
	}
	if cfg != nil {
		srv = srv.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout).
			WithPprof(cfg.Debug.PprofEnabled)
	}
	if err := srv.Start(); err != nil {
		logger.Error("admin server start failed", zap.Error(err))
		return -1
	}
	adminSrv = srv
	return C.int(srv.Port())
}

// libraryVersion is set with -ldflags "-X main.libraryVersion=...".
var libraryVersion = "dev"
