package file

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"hash"
	"hash/crc32"
	"os"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// objectWriter stages bytes in a temp file next to the destination and
// renames it into place on Commit.
type objectWriter struct {
	p      *Provider
	bucket string
	object string
	full   string

	tmp  *os.File
	md5  hash.Hash
	crc  hash.Hash32
	size uint64

	// err is sticky: once a write fails the session is unusable.
	err  error
	done bool
}

var _ provider.ObjectWriter = (*objectWriter)(nil)

func newObjectWriter(p *Provider, bucket, object, full string, tmp *os.File) *objectWriter {
	return &objectWriter{
		p:      p,
		bucket: bucket,
		object: object,
		full:   full,
		tmp:    tmp,
		md5:    md5.New(),
		crc:    crc32.New(castagnoli),
	}
}

func (w *objectWriter) Write(b []byte) (int, error) {
	if w.done {
		return 0, w.p.wrapError("Write", w.bucket, w.object, fmt.Errorf("%w: writer is closed", provider.ErrAborted))
	}
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.tmp.Write(b)
	_, _ = w.md5.Write(b[:n])
	_, _ = w.crc.Write(b[:n])
	w.size += uint64(n)
	if err != nil {
		w.err = w.p.wrapError("Write", w.bucket, w.object, err)
		return n, w.err
	}
	return n, nil
}

func (w *objectWriter) Commit() (*provider.ObjectMeta, error) {
	if w.done {
		return nil, w.p.wrapError("Commit", w.bucket, w.object, fmt.Errorf("%w: writer is closed", provider.ErrAborted))
	}
	if w.err != nil {
		err := w.err
		_ = w.Abort()
		return nil, err
	}
	w.done = true

	tmpName := w.tmp.Name()
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, w.p.wrapError("Commit", w.bucket, w.object, err)
	}

	now := w.p.now().UTC()
	sc := &objectSidecar{
		Generation:     now.UnixMicro(),
		Metageneration: 1,
		Size:           w.size,
		ContentType:    contentTypeFor(w.object),
		StorageClass:   defaultStorageClass,
		MD5Hash:        base64.StdEncoding.EncodeToString(w.md5.Sum(nil)),
		CRC32C:         base64.StdEncoding.EncodeToString(w.crc.Sum(nil)),
		TimeCreated:    now,
		Updated:        now,
	}
	meta, err := w.p.commit(w.bucket, w.object, w.full, tmpName, sc)
	if err != nil {
		_ = os.Remove(tmpName)
		return nil, err
	}
	return meta, nil
}

func (w *objectWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	tmpName := w.tmp.Name()
	_ = w.tmp.Close()
	if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
		return w.p.wrapError("Abort", w.bucket, w.object, err)
	}
	return nil
}
