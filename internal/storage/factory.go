package storage

import (
	"fmt"
	"strings"
)

// StorageType selects the object storage backend.
type StorageType string

const (
	StorageTypeLocal        StorageType = "local"
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// Config holds configuration for every supported storage backend.
type Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Prefix    string // Key prefix applied to every object
	LocalPath string // Root directory for StorageTypeLocal
}

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration; an empty Type is detected from the endpoint,
//     and an empty endpoint selects local storage.
//
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath, cfg.Prefix)
	case StorageTypeMinIO:
		return NewMinIOStorage(cfg)
	case StorageTypeR2, StorageTypeS3, StorageTypeS3Compatible:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// prefixedKey joins the configured prefix and an object key.
func prefixedKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
