package file

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type bucketSidecar struct {
	Location       string            `yaml:"location"`
	StorageClass   string            `yaml:"storage_class"`
	Labels         map[string]string `yaml:"labels,omitempty"`
	Versioning     bool              `yaml:"versioning"`
	ObjectLock     bool              `yaml:"object_lock"`
	Metageneration int64             `yaml:"metageneration"`
	TimeCreated    time.Time         `yaml:"time_created"`
}

type objectSidecar struct {
	Generation     int64             `yaml:"generation"`
	Metageneration int64             `yaml:"metageneration"`
	Size           uint64            `yaml:"size"`
	ContentType    string            `yaml:"content_type"`
	StorageClass   string            `yaml:"storage_class"`
	MD5Hash        string            `yaml:"md5_hash"`
	CRC32C         string            `yaml:"crc32c"`
	TimeCreated    time.Time         `yaml:"time_created"`
	Updated        time.Time         `yaml:"updated"`
	Metadata       map[string]string `yaml:"metadata,omitempty"`
}

func readSidecar(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// writeSidecar replaces path atomically.
func writeSidecar(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sidecar-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
