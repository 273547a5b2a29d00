package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverS3     = "s3"
)

// Config selects and configures a backend for Open.
type Config struct {
	// Driver is one of memory, badger, sqlite, s3.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty" env:"DRIVER"`

	// Path is the badger directory or the sqlite file.
	Path string `json:"path,omitempty" yaml:"path,omitempty" env:"PATH"`

	// Table is the sqlite table name.
	Table string `json:"table,omitempty" yaml:"table,omitempty" env:"TABLE"`

	// Bucket, Prefix, Region and Endpoint configure the s3 driver.
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" env:"BUCKET"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty" env:"PREFIX"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty" env:"REGION"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" env:"ENDPOINT"`

	// SyncWrites makes badger writes durable before returning.
	SyncWrites bool `json:"syncWrites,omitempty" yaml:"syncWrites,omitempty" env:"SYNC_WRITES"`
}

// Open builds the backend described by cfg. An empty driver selects memory.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil

	case DriverBadger:
		return OpenBadger(BadgerConfig{
			Path:       cfg.Path,
			SyncWrites: cfg.SyncWrites,
			Prefix:     cfg.Prefix,
			Logger:     logger,
		})

	case DriverSQLite:
		var opts []SQLOption
		if cfg.Table != "" {
			opts = append(opts, WithSQLTableName(cfg.Table))
		}
		return OpenSQLite(ctx, cfg.Path, opts...)

	case DriverS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("storage: s3 bucket is required")
		}
		return NewS3(newS3Client(cfg), cfg.Bucket, cfg.Prefix), nil
	}

	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}

// newS3Client builds a client from cfg and the standard AWS_* environment
// credentials. A custom endpoint switches to path-style addressing, which is
// what MinIO and other S3-compatible servers expect.
func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	creds := aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		id := os.Getenv("AWS_ACCESS_KEY_ID")
		secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, fmt.Errorf("storage: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	}))

	return s3.New(s3.Options{
		Region:      region,
		Credentials: creds,
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}
