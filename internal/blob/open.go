package blob

import (
	"context"
	"fmt"

	"experimentdb/internal/infra/blob/fs"
	"experimentdb/internal/infra/blob/memory"
	infras3 "experimentdb/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = infras3.Config

// Options selects and configures a backend. Driver defaults to fs.
type Options struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(opts.FSRoot)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", opts.Driver)
	}
}

// NewFilesystem stores files below root.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a process local store.
func NewMemory() Store { return memory.New() }

// NewS3 stores files in a bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	s, err := infras3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
