package bridge

import (
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/3leaps/nimbusbridge/internal/handle"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// ObjectEnvelope is the result of an object operation. Exactly one of Status
// and Value is non-null. Release it once with FreeObjectEnvelope.
type ObjectEnvelope struct {
	Status handle.Handle
	Value  handle.Handle
}

// BucketEnvelope is the result of a bucket operation. Exactly one of Status
// and Value is non-null. Release it once with FreeBucketEnvelope.
type BucketEnvelope struct {
	Status handle.Handle
	Value  handle.Handle
}

// ObjectCallback receives the envelope of an asynchronous object operation.
type ObjectCallback func(ObjectEnvelope)

// BucketCallback receives the envelope of an asynchronous bucket operation.
type BucketCallback func(BucketEnvelope)

var errNoResult = errors.New("collaborator returned neither a result nor an error")

func statusOf(err error) *status.Status {
	return provider.StatusFromError(err)
}

func (b *Bridge) newObjectEnvelope(meta *provider.ObjectMeta, err error) ObjectEnvelope {
	if err == nil && meta == nil {
		err = status.Error(codes.Internal, errNoResult.Error())
	}
	var env ObjectEnvelope
	if err != nil {
		env.Status = b.statuses.Insert(statusOf(err))
	} else {
		env.Value = b.objects.Insert(meta)
	}
	b.envelopesChanged()
	return env
}

func (b *Bridge) newBucketEnvelope(meta *provider.BucketMeta, err error) BucketEnvelope {
	if err == nil && meta == nil {
		err = status.Error(codes.Internal, errNoResult.Error())
	}
	var env BucketEnvelope
	if err != nil {
		env.Status = b.statuses.Insert(statusOf(err))
	} else {
		env.Value = b.buckets.Insert(meta)
	}
	b.envelopesChanged()
	return env
}

func (b *Bridge) envelopesChanged() {
	b.observer.HandlesChanged(KindEnvelope, b.statuses.Len()+b.objects.Len()+b.buckets.Len())
}

// IsObjectOk reports whether the envelope carries a value. It is false for failure
// envelopes and for envelopes that were already released.
func (b *Bridge) IsObjectOk(env ObjectEnvelope) bool {
	return env.Status.IsNull() && b.objectValue(env) != nil
}

// IsBucketOk is the bucket counterpart of IsObjectOk.
func (b *Bridge) IsBucketOk(env BucketEnvelope) bool {
	return env.Status.IsNull() && b.bucketValue(env) != nil
}

// StatusCode returns the status code in a status handle. Success, released
// and unknown handles all report codes.OK.
func (b *Bridge) StatusCode(h handle.Handle) codes.Code {
	st, ok := b.statuses.Get(h)
	if !ok {
		return codes.OK
	}
	return st.Code()
}

// StatusMessage returns the status message for a status handle, and false
// when the handle does not resolve.
func (b *Bridge) StatusMessage(h handle.Handle) (string, bool) {
	st, ok := b.statuses.Get(h)
	if !ok {
		return "", false
	}
	return st.Message(), true
}

// FreeObjectEnvelope releases whichever slot of env is populated. Releasing
// an envelope twice is a logged no-op.
func (b *Bridge) FreeObjectEnvelope(env ObjectEnvelope) {
	_, okStatus := b.statuses.Remove(env.Status)
	_, okValue := b.objects.Remove(env.Value)
	b.afterFree(okStatus || okValue, env.Status, env.Value)
}

// FreeBucketEnvelope releases whichever slot of env is populated.
func (b *Bridge) FreeBucketEnvelope(env BucketEnvelope) {
	_, okStatus := b.statuses.Remove(env.Status)
	_, okValue := b.buckets.Remove(env.Value)
	b.afterFree(okStatus || okValue, env.Status, env.Value)
}

func (b *Bridge) afterFree(released bool, statusH, valueH handle.Handle) {
	if !released {
		b.logger.Debug("release of unknown envelope",
			zap.Stringer("status", statusH), zap.Stringer("value", valueH))
		return
	}
	b.envelopesChanged()
}

func (b *Bridge) objectValue(env ObjectEnvelope) *provider.ObjectMeta {
	if !env.Status.IsNull() {
		return nil
	}
	meta, ok := b.objects.Get(env.Value)
	if !ok {
		return nil
	}
	return meta
}

func (b *Bridge) bucketValue(env BucketEnvelope) *provider.BucketMeta {
	if !env.Status.IsNull() {
		return nil
	}
	meta, ok := b.buckets.Get(env.Value)
	if !ok {
		return nil
	}
	return meta
}
