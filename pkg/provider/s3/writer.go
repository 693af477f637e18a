package s3

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// objectWriter feeds a background multipart upload through an io.Pipe.
//
// Each Write blocks until the uploader has consumed the chunk. When the
// upload fails the read side of the pipe is closed with the upload error, so
// the next Write returns it.
type objectWriter struct {
	ctx    context.Context
	p      *Provider
	bucket string
	object string

	pw   *io.PipeWriter
	done chan struct{}

	mu        sync.Mutex
	uploadErr error
	finished  bool
}

var _ provider.ObjectWriter = (*objectWriter)(nil)

func newObjectWriter(ctx context.Context, p *Provider, bucket, object string) *objectWriter {
	pr, pw := io.Pipe()
	w := &objectWriter{
		ctx:    ctx,
		p:      p,
		bucket: bucket,
		object: object,
		pw:     pw,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		_, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(object),
			Body:        pr,
			ContentType: aws.String(contentTypeFor(object)),
		})
		if err != nil {
			_ = pr.CloseWithError(err)
		} else {
			_ = pr.Close()
		}
		w.mu.Lock()
		w.uploadErr = err
		w.mu.Unlock()
	}()

	return w
}

func (w *objectWriter) Write(b []byte) (int, error) {
	if w.isFinished() {
		return 0, w.p.wrapError("Write", w.bucket, w.object, fmt.Errorf("%w: writer is closed", provider.ErrAborted))
	}
	n, err := w.pw.Write(b)
	if err != nil {
		return n, w.p.wrapError("Write", w.bucket, w.object, err)
	}
	return n, nil
}

func (w *objectWriter) Commit() (*provider.ObjectMeta, error) {
	if !w.finish() {
		return nil, w.p.wrapError("Commit", w.bucket, w.object, fmt.Errorf("%w: writer is closed", provider.ErrAborted))
	}
	_ = w.pw.Close()
	<-w.done

	w.mu.Lock()
	err := w.uploadErr
	w.mu.Unlock()
	if err != nil {
		return nil, w.p.wrapError("Commit", w.bucket, w.object, err)
	}
	return w.p.GetObjectMetadata(w.ctx, w.bucket, w.object)
}

// Abort closes the pipe with ErrAborted. The uploader sees a read error and
// aborts any multipart upload it started.
func (w *objectWriter) Abort() error {
	if !w.finish() {
		return nil
	}
	_ = w.pw.CloseWithError(provider.ErrAborted)
	<-w.done
	return nil
}

// finish marks the writer finished and reports whether this call did so.
func (w *objectWriter) finish() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return false
	}
	w.finished = true
	return true
}

func (w *objectWriter) isFinished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}
