// Package file implements the provider client over a local directory tree.
//
// Buckets are directories under BaseDir and objects are files within them.
// Object and bucket metadata live in YAML sidecars under BaseDir/.nimbusbridge
// so that the data tree holds nothing but object bytes.
package file

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// metaDirName holds sidecars. It can never collide with a bucket because
// bucket names must start with a letter or digit.
const metaDirName = ".nimbusbridge"

const defaultStorageClass = "STANDARD"

// Provider implements provider.Client for local filesystem paths.
type Provider struct {
	baseDir string
	now     func() time.Time
}

// Ensure Provider implements the interface.
var _ provider.Client = (*Provider)(nil)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := filepath.Clean(cfg.BaseDir)
	if err := os.MkdirAll(filepath.Join(base, metaDirName), 0o755); err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderFile, Err: err}
	}
	return &Provider{baseDir: base, now: time.Now}, nil
}

func (p *Provider) Close() error { return nil }

func (p *Provider) CreateBucket(ctx context.Context, name string, opts provider.BucketOptions) (*provider.BucketMeta, error) {
	_ = ctx
	if err := provider.ValidateBucketName(name); err != nil {
		return nil, p.wrapError("CreateBucket", name, "", err)
	}
	if err := os.Mkdir(filepath.Join(p.baseDir, name), 0o755); err != nil {
		return nil, p.wrapError("CreateBucket", name, "", err)
	}

	storageClass := opts.StorageClass
	if storageClass == "" {
		storageClass = defaultStorageClass
	}
	location := opts.Location
	if location == "" {
		location = "LOCAL"
	}

	sc := &bucketSidecar{
		Location:       location,
		StorageClass:   storageClass,
		Labels:         opts.Labels,
		Versioning:     opts.Versioning,
		ObjectLock:     opts.ObjectLock,
		Metageneration: 1,
		TimeCreated:    p.now().UTC(),
	}
	if err := writeSidecar(p.bucketSidecarPath(name), sc); err != nil {
		_ = os.Remove(filepath.Join(p.baseDir, name))
		return nil, p.wrapError("CreateBucket", name, "", err)
	}
	return p.bucketMeta(name, sc), nil
}

func (p *Provider) GetBucketMetadata(ctx context.Context, bucket string) (*provider.BucketMeta, error) {
	_ = ctx
	if err := provider.ValidateBucketName(bucket); err != nil {
		return nil, p.wrapError("GetBucketMetadata", bucket, "", err)
	}
	sc, err := p.loadBucket(bucket)
	if err != nil {
		return nil, p.wrapError("GetBucketMetadata", bucket, "", err)
	}
	return p.bucketMeta(bucket, sc), nil
}

func (p *Provider) UploadFile(ctx context.Context, path, bucket, object string) (*provider.ObjectMeta, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}
	defer func() { _ = src.Close() }()

	w, err := p.OpenWriteStream(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Abort()
		return nil, p.wrapError("UploadFile", bucket, object, err)
	}
	return w.Commit()
}

func (p *Provider) GetObjectMetadata(ctx context.Context, bucket, object string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.objectPath(bucket, object)
	if err != nil {
		return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
	}
	if _, err := p.loadBucket(bucket); err != nil {
		return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
	}
	if st.IsDir() {
		return nil, &provider.ProviderError{Op: "GetObjectMetadata", Provider: provider.ProviderFile, Bucket: bucket, Key: object, Err: provider.ErrNotFound}
	}

	var sc objectSidecar
	if err := readSidecar(p.objectSidecarPath(bucket, object), &sc); err != nil {
		if !os.IsNotExist(err) {
			return nil, p.wrapError("GetObjectMetadata", bucket, object, err)
		}
		// Files placed into the tree by hand have no sidecar.
		sc = objectSidecar{
			Generation:     st.ModTime().UnixMicro(),
			Metageneration: 1,
			ContentType:    contentTypeFor(object),
			StorageClass:   defaultStorageClass,
			TimeCreated:    st.ModTime().UTC(),
			Updated:        st.ModTime().UTC(),
		}
	}
	sc.Size = uint64(st.Size())
	return p.objectMeta(bucket, object, &sc), nil
}

func (p *Provider) OpenWriteStream(ctx context.Context, bucket, object string) (provider.ObjectWriter, error) {
	_ = ctx
	full, err := p.objectPath(bucket, object)
	if err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	if _, err := p.loadBucket(bucket); err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), tempPrefix+"*")
	if err != nil {
		return nil, p.wrapError("OpenWriteStream", bucket, object, err)
	}
	return newObjectWriter(p, bucket, object, full, tmp), nil
}

// commit publishes a staged temp file as bucket/object.
func (p *Provider) commit(bucket, object, full, tmpName string, sc *objectSidecar) (*provider.ObjectMeta, error) {
	sidecarPath := p.objectSidecarPath(bucket, object)

	var prev objectSidecar
	if err := readSidecar(sidecarPath, &prev); err == nil && prev.Generation >= sc.Generation {
		sc.Generation = prev.Generation + 1
	}

	if err := os.Rename(tmpName, full); err != nil {
		return nil, p.wrapError("Commit", bucket, object, err)
	}
	if err := writeSidecar(sidecarPath, sc); err != nil {
		return nil, p.wrapError("Commit", bucket, object, err)
	}
	return p.objectMeta(bucket, object, sc), nil
}

func (p *Provider) loadBucket(bucket string) (*bucketSidecar, error) {
	dir := filepath.Join(p.baseDir, bucket)
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, provider.ErrBucketNotFound
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, provider.ErrBucketNotFound
	}

	var sc bucketSidecar
	if err := readSidecar(p.bucketSidecarPath(bucket), &sc); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		sc = bucketSidecar{
			Location:       "LOCAL",
			StorageClass:   defaultStorageClass,
			Metageneration: 1,
			TimeCreated:    st.ModTime().UTC(),
		}
	}
	return &sc, nil
}

func (p *Provider) bucketMeta(name string, sc *bucketSidecar) *provider.BucketMeta {
	return &provider.BucketMeta{
		Name:                  name,
		ID:                    name,
		SelfLink:              fileURL(filepath.Join(p.baseDir, name)),
		Location:              sc.Location,
		LocationType:          "local",
		StorageClass:          sc.StorageClass,
		Metageneration:        sc.Metageneration,
		TimeCreated:           sc.TimeCreated,
		Updated:               sc.TimeCreated,
		Versioning:            sc.Versioning,
		DefaultEventBasedHold: false,
		Labels:                provider.SortedEntries(sc.Labels),
	}
}

func (p *Provider) objectMeta(bucket, object string, sc *objectSidecar) *provider.ObjectMeta {
	full := filepath.Join(p.baseDir, bucket, filepath.FromSlash(cleanKey(object)))
	return &provider.ObjectMeta{
		Name:                    object,
		Bucket:                  bucket,
		ID:                      fmt.Sprintf("%s/%s/%d", bucket, object, sc.Generation),
		ETag:                    sc.MD5Hash,
		SelfLink:                fileURL(p.objectSidecarPath(bucket, object)),
		MediaLink:               fileURL(full),
		ContentType:             sc.ContentType,
		MD5Hash:                 sc.MD5Hash,
		CRC32C:                  sc.CRC32C,
		StorageClass:            sc.StorageClass,
		Size:                    sc.Size,
		Generation:              sc.Generation,
		Metageneration:          sc.Metageneration,
		TimeCreated:             sc.TimeCreated,
		Updated:                 sc.Updated,
		TimeStorageClassUpdated: sc.TimeCreated,
		Metadata:                provider.SortedEntries(sc.Metadata),
	}
}

const tempPrefix = ".nimbusbridge-put-"

// objectKey returns the cleaned slash-separated key for object. Keys that
// would leave the bucket directory or shadow staging files are rejected.
func objectKey(object string) (string, error) {
	if err := provider.ValidateObjectName(object); err != nil {
		return "", err
	}
	key := cleanKey(object)
	if key == "" || hasDotDot(filepath.ToSlash(object)) {
		return "", fmt.Errorf("%w: object name %q escapes its bucket", provider.ErrInvalidArgument, object)
	}
	for i, seg := range strings.Split(key, "/") {
		if (i == 0 && seg == metaDirName) || strings.HasPrefix(seg, tempPrefix) {
			return "", fmt.Errorf("%w: object name %q uses a reserved path", provider.ErrInvalidArgument, object)
		}
	}
	return key, nil
}

func cleanKey(object string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(object)), "/")
}

// hasDotDot reports whether name climbs above its starting directory at any
// point.
func hasDotDot(name string) bool {
	depth := 0
	for _, seg := range strings.Split(name, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

func (p *Provider) objectPath(bucket, object string) (string, error) {
	if err := provider.ValidateBucketName(bucket); err != nil {
		return "", err
	}
	key, err := objectKey(object)
	if err != nil {
		return "", err
	}
	bucketDir := filepath.Join(p.baseDir, bucket)
	full := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: object name %q escapes its bucket", provider.ErrInvalidArgument, object)
	}
	return full, nil
}

func (p *Provider) bucketSidecarPath(bucket string) string {
	return filepath.Join(p.baseDir, metaDirName, "buckets", bucket+".yaml")
}

// objectSidecarPath expects an object that objectPath has already accepted.
func (p *Provider) objectSidecarPath(bucket, object string) string {
	return filepath.Join(p.baseDir, metaDirName, "objects", bucket, filepath.FromSlash(cleanKey(object))+".yaml")
}

func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: bucket, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to provider sentinels.
	switch {
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsExist(err):
		wrapped.Err = provider.ErrAlreadyExists
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}

func contentTypeFor(object string) string {
	if ext := filepath.Ext(object); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

func fileURL(path string) string {
	return "file://" + filepath.ToSlash(path)
}
