package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

type writerState int

const (
	writerOpened writerState = iota
	writerFailed
	writerClosed
)

func (s writerState) String() string {
	switch s {
	case writerOpened:
		return "opened"
	case writerFailed:
		return "failed"
	case writerClosed:
		return "closed"
	}
	return fmt.Sprintf("writerState(%d)", int(s))
}

// writerSession is one chunked upload bound to a single bucket/object pair.
type writerSession struct {
	mu      sync.Mutex
	id      string
	bucket  string
	object  string
	stream  provider.ObjectWriter
	state   writerState
	err     error
	written int64
}

// WriteObject opens a write stream session. It always returns a usable
// handle: if the stream cannot be opened the session starts out failed,
// WriteChunk reports false and DestroyWriter abandons it.
func (b *Bridge) WriteObject(h ClientHandle, bucket, object string) WriterHandle {
	s := &writerSession{
		id:     uuid.NewString(),
		bucket: strings.Clone(bucket),
		object: strings.Clone(object),
	}

	client, err := b.client(h)
	if err == nil {
		s.stream, err = client.OpenWriteStream(context.Background(), s.bucket, s.object)
	}
	if err != nil {
		s.state = writerFailed
		s.err = err
		b.logger.Warn("write stream open failed",
			zap.String("op_id", s.id), zap.String("bucket", s.bucket),
			zap.String("object", s.object), zap.Error(err))
	}

	w := WriterHandle(b.writers.Insert(s))
	b.observer.HandlesChanged(KindWriter, b.writers.Len())
	return w
}

// WriteChunk appends data to the stream and blocks until the collaborator
// accepts it. It returns false on failure; the session then moves to the
// failed state and refuses further chunks.
func (b *Bridge) WriteChunk(w WriterHandle, data []byte) bool {
	s, ok := b.writers.Get(handle.Handle(w))
	if !ok {
		b.logger.Warn("write to unknown writer handle", zap.Stringer("handle", w))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerOpened {
		b.logger.Debug("write to non-open stream",
			zap.String("op_id", s.id), zap.Stringer("state", s.state))
		return false
	}

	start := time.Now()
	b.observer.OperationStarted(OpWriteChunk)
	n, err := s.stream.Write(data)
	s.written += int64(n)
	b.observer.BytesWritten(n)
	if err == nil && n < len(data) {
		err = fmt.Errorf("%w: short write %d of %d bytes", provider.ErrAborted, n, len(data))
	}
	b.observer.OperationFinished(OpWriteChunk, statusOf(err).Code(), time.Since(start))

	if err != nil {
		s.state = writerFailed
		s.err = err
		b.logger.Error("write chunk failed",
			zap.String("op_id", s.id), zap.String("bucket", s.bucket),
			zap.String("object", s.object), zap.Int64("written", s.written), zap.Error(err))
		return false
	}
	return true
}

// DestroyWriter ends the session and invalidates the handle. A healthy
// stream is committed; a failed one is abandoned. Commit failures are
// logged; use CloseWriter to observe them.
func (b *Bridge) DestroyWriter(w WriterHandle) {
	s, ok := b.takeWriter(w)
	if !ok {
		return
	}
	if _, err := b.finish(s); err != nil {
		b.logger.Error("write stream finalize failed",
			zap.String("op_id", s.id), zap.String("bucket", s.bucket),
			zap.String("object", s.object), zap.Error(err))
	}
}

// CloseWriter is DestroyWriter returning the outcome: the committed object's
// metadata, or the status that failed the session. Release the envelope
// with FreeObjectEnvelope.
func (b *Bridge) CloseWriter(w WriterHandle) ObjectEnvelope {
	s, ok := b.takeWriter(w)
	if !ok {
		return b.newObjectEnvelope(nil, fmt.Errorf("%w: unknown writer handle %s", provider.ErrInvalidArgument, w))
	}
	start := time.Now()
	b.observer.OperationStarted(OpCloseWriter)
	meta, err := b.finish(s)
	b.observer.OperationFinished(OpCloseWriter, statusOf(err).Code(), time.Since(start))
	return b.newObjectEnvelope(meta, err)
}

// AbortWriter ends the session without committing, whatever its state.
func (b *Bridge) AbortWriter(w WriterHandle) {
	s, ok := b.takeWriter(w)
	if !ok {
		return
	}
	s.mu.Lock()
	if s.state == writerOpened {
		s.state = writerFailed
		s.err = fmt.Errorf("%w: aborted by caller", provider.ErrAborted)
	}
	s.mu.Unlock()
	_, _ = b.finish(s)
}

func (b *Bridge) takeWriter(w WriterHandle) (*writerSession, bool) {
	s, ok := b.writers.Remove(handle.Handle(w))
	if !ok {
		b.logger.Warn("destroy of unknown writer handle", zap.Stringer("handle", w))
		return nil, false
	}
	b.observer.HandlesChanged(KindWriter, b.writers.Len())
	return s, true
}

func (b *Bridge) finish(s *writerSession) (*provider.ObjectMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	s.state = writerClosed

	switch state {
	case writerOpened:
		return s.stream.Commit()
	case writerFailed:
		if s.stream != nil {
			if err := s.stream.Abort(); err != nil {
				b.logger.Warn("write stream abort failed", zap.String("op_id", s.id), zap.Error(err))
			}
		}
		return nil, s.err
	}
	return nil, fmt.Errorf("%w: write stream already closed", provider.ErrAborted)
}
