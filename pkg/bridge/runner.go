package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Runner executes blocking collaborator calls on detached goroutines.
//
// Every submitted operation runs on its own goroutine with no queue or
// admission limit. The caller gets nothing to wait on or cancel. Each
// operation's deliver function is called exactly once: with the operation's
// error, or with an Internal status if the operation panicked.
type Runner struct {
	logger   *zap.Logger
	observer Observer

	mu      sync.Mutex
	pending int
	byOp    map[string]int
	idle    []chan struct{}
}

// NewRunner returns a runner that logs to logger and reports to observer.
func NewRunner(logger *zap.Logger, observer Observer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Runner{
		logger:   logger,
		observer: observer,
		byOp:     make(map[string]int),
	}
}

// Submit starts op on a new goroutine and returns immediately. When op
// returns, deliver receives its error. Operations run against a background
// context: there is no deadline and no cancellation.
func (r *Runner) Submit(name string, op func(ctx context.Context) error, deliver func(err error)) {
	opID := uuid.NewString()
	r.begin(name)
	r.observer.OperationStarted(name)

	go func() {
		start := time.Now()
		log := r.logger.With(zap.String("op", name), zap.String("op_id", opID))
		defer r.end(name)

		err := r.call(log, name, op)
		code := statusOf(err).Code()
		r.observer.OperationFinished(name, code, time.Since(start))
		if err != nil {
			log.Debug("operation failed", zap.Stringer("code", code), zap.Error(err))
		}

		r.deliver(log, deliver, err)
	}()
}

func (r *Runner) call(log *zap.Logger, name string, op func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("operation panicked", zap.Any("panic", p), zap.Stack("stack"))
			err = status.Error(codes.Internal, fmt.Sprintf("%s: panic: %v", name, p))
		}
	}()
	return op(context.Background())
}

// deliver invokes the completion callback once. A panicking callback is
// logged and not retried.
func (r *Runner) deliver(log *zap.Logger, deliver func(error), err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("completion callback panicked", zap.Any("panic", p))
		}
	}()
	deliver(err)
}

func (r *Runner) begin(name string) {
	r.mu.Lock()
	r.pending++
	r.byOp[name]++
	r.mu.Unlock()
}

func (r *Runner) end(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending--
	if r.byOp[name]--; r.byOp[name] == 0 {
		delete(r.byOp, name)
	}
	if r.pending == 0 {
		for _, ch := range r.idle {
			close(ch)
		}
		r.idle = nil
	}
}

// InFlight returns the number of submitted operations whose callback has not
// yet returned, keyed by operation name.
func (r *Runner) InFlight() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.byOp))
	for k, v := range r.byOp {
		out[k] = v
	}
	return out
}

// Drain blocks until no operations are in flight or ctx is done. It exists
// for host shutdown and tests; operations themselves are never cancelled.
func (r *Runner) Drain(ctx context.Context) error {
	r.mu.Lock()
	if r.pending == 0 {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.idle = append(r.idle, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
