// Package core holds the blob storage contract shared by the upload
// pipeline and the concrete backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// PutOptions carries optional attributes of an uploaded file.
type PutOptions struct {
	ContentType string
	// OriginalName is the client supplied filename, kept as metadata.
	OriginalName string
}

// SignedURLOptions controls a download link handed to browsers.
type SignedURLOptions struct {
	// Expiry defaults to 15 minutes.
	Expiry time.Duration
}

// Info describes a stored file.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	OriginalName string    `json:"original_name,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the minimal object store behind record file fields. Put never
// overwrites: an occupied key yields ErrExists so callers can pick a new name.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	// PresignURL returns a direct download link or ErrUnsupported when the
	// backend cannot serve files itself.
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	ErrUnsupported = errors.New("blob: unsupported operation")
	ErrExists      = errors.New("blob: key already exists")
	ErrNotFound    = errors.New("blob: key not found")
	ErrInvalidKey  = errors.New("blob: invalid key")
)

// DefaultExpiry is used when SignedURLOptions.Expiry is zero.
const DefaultExpiry = 15 * time.Minute
