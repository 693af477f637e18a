// Package bridge implements the boundary layer between a host that can only
// exchange flat values and the object-storage collaborator.
//
// Everything the host holds is a handle: clients, write streams, and the two
// slots of every result envelope. Handles are generation-tagged indexes into
// registries owned by a Bridge, so a released or forged handle resolves to
// nothing instead of to freed memory. Asynchronous operations run on a
// Runner and deliver exactly one envelope to their callback.
//
// Strings handed out by accessors are independent copies. Releasing an
// envelope never invalidates a string already read from it.
package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// ClientHandle identifies a live collaborator client.
type ClientHandle handle.Handle

// WriterHandle identifies a write stream session.
type WriterHandle handle.Handle

// NullClient is returned when a client cannot be constructed.
const NullClient ClientHandle = 0

// IsNull reports whether h is the null client handle.
func (h ClientHandle) IsNull() bool { return h == NullClient }

func (h ClientHandle) String() string { return handle.Handle(h).String() }

func (h WriterHandle) String() string { return handle.Handle(h).String() }

// ClientFactory constructs a collaborator client.
type ClientFactory func(ctx context.Context) (provider.Client, error)

// Stats is a snapshot of live handles and in-flight operations.
type Stats struct {
	Clients    int            `json:"clients"`
	Writers    int            `json:"writers"`
	Objects    int            `json:"objects"`
	Buckets    int            `json:"buckets"`
	Statuses   int            `json:"statuses"`
	Operations map[string]int `json:"operations"`
}

// Bridge owns every handle issued across the boundary.
//
// All methods are safe for concurrent use. A single write stream session must
// still be driven by one caller at a time.
type Bridge struct {
	factory  ClientFactory
	logger   *zap.Logger
	observer Observer
	runner   *Runner

	clients  *handle.Registry[provider.Client]
	writers  *handle.Registry[*writerSession]
	objects  *handle.Registry[*provider.ObjectMeta]
	buckets  *handle.Registry[*provider.BucketMeta]
	statuses *handle.Registry[*status.Status]
}

// New creates a bridge that builds clients with factory.
//
// Use WithObserver to export metrics.
func New(factory ClientFactory, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		factory:  factory,
		logger:   logger,
		observer: nopObserver{},
		clients:  handle.NewRegistry[provider.Client](),
		writers:  handle.NewRegistry[*writerSession](),
		objects:  handle.NewRegistry[*provider.ObjectMeta](),
		buckets:  handle.NewRegistry[*provider.BucketMeta](),
		statuses: handle.NewRegistry[*status.Status](),
	}
	b.runner = NewRunner(logger, b.observer)
	return b
}

// WithObserver sets the telemetry observer. It must be called before the
// bridge is used. Returns the bridge for method chaining.
func (b *Bridge) WithObserver(o Observer) *Bridge {
	if o == nil {
		o = nopObserver{}
	}
	b.observer = o
	b.runner = NewRunner(b.logger, o)
	return b
}

// Runner returns the runner executing asynchronous operations.
func (b *Bridge) Runner() *Runner { return b.runner }

// CreateClient constructs a collaborator client. Construction failure is
// logged and reported only as NullClient.
func (b *Bridge) CreateClient() ClientHandle {
	h, st := b.CreateClientWithStatus()
	if st != nil {
		b.logger.Error("client construction failed",
			zap.Stringer("code", st.Code()), zap.String("error", st.Message()))
	}
	return h
}

// CreateClientWithStatus is CreateClient with the failure status returned
// instead of only logged. The status is nil on success.
func (b *Bridge) CreateClientWithStatus() (ClientHandle, *status.Status) {
	if b.factory == nil {
		return NullClient, status.New(codes.FailedPrecondition, "no client factory configured")
	}
	client, err := b.factory(context.Background())
	if err == nil && client == nil {
		err = fmt.Errorf("%w: factory returned no client", provider.ErrProviderUnavailable)
	}
	if err != nil {
		return NullClient, statusOf(err)
	}

	h := ClientHandle(b.clients.Insert(client))
	b.observer.HandlesChanged(KindClient, b.clients.Len())
	b.logger.Debug("client created", zap.Stringer("handle", h))
	return h, nil
}

// DestroyClient closes the client behind h. Destroying an unknown or already
// destroyed handle is a logged no-op. Operations already submitted against
// the client keep running.
func (b *Bridge) DestroyClient(h ClientHandle) {
	client, ok := b.clients.Remove(handle.Handle(h))
	if !ok {
		b.logger.Warn("destroy of unknown client handle", zap.Stringer("handle", h))
		return
	}
	b.observer.HandlesChanged(KindClient, b.clients.Len())
	if err := client.Close(); err != nil {
		b.logger.Warn("client close failed", zap.Stringer("handle", h), zap.Error(err))
	}
}

func (b *Bridge) client(h ClientHandle) (provider.Client, error) {
	client, ok := b.clients.Get(handle.Handle(h))
	if !ok {
		return nil, fmt.Errorf("%w: unknown client handle %s", provider.ErrInvalidArgument, h)
	}
	return client, nil
}

// Stats returns live handle counts and in-flight operations.
func (b *Bridge) Stats() Stats {
	return Stats{
		Clients:    b.clients.Len(),
		Writers:    b.writers.Len(),
		Objects:    b.objects.Len(),
		Buckets:    b.buckets.Len(),
		Statuses:   b.statuses.Len(),
		Operations: b.runner.InFlight(),
	}
}

// Drain waits for in-flight asynchronous operations. See Runner.Drain.
func (b *Bridge) Drain(ctx context.Context) error {
	return b.runner.Drain(ctx)
}
