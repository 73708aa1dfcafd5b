package storage

import (
	"context"
	"io"
)

// Backend is the blob store behind image uploads. Paths are relative keys;
// List returns every key under the prefix.
type Backend interface {
	Store(ctx context.Context, path string, reader io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

type BackendType string

const (
	BackendTypeLocal BackendType = "local"
	BackendTypeS3    BackendType = "s3"
)

type Config struct {
	Type        BackendType `mapstructure:"type"`
	LocalPath   string      `mapstructure:"local_path"`
	S3Endpoint  string      `mapstructure:"s3_endpoint"`
	S3Bucket    string      `mapstructure:"s3_bucket"`
	S3AccessKey string      `mapstructure:"s3_access_key"`
	S3SecretKey string      `mapstructure:"s3_secret_key"`
	S3Region    string      `mapstructure:"s3_region"`
	S3UseSSL    bool        `mapstructure:"s3_use_ssl"`
	MaxFileSize int64       `mapstructure:"max_file_size"`
}

func NewBackend(config *Config) (Backend, error) {
	switch config.Type {
	case BackendTypeS3:
		return NewS3Backend(config)
	default:
		return NewLocalBackend(config)
	}
}
