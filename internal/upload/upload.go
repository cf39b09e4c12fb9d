// Package upload stores files attached to record file fields. Files land
// under the field's date partitioned directory and only the resulting key is
// written back onto the record.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"experimentdb/internal/blob"
	"experimentdb/pkg/domain"
)

// maxAttempts bounds the _N suffix search for a free key.
const maxAttempts = 1000

var unsafeChars = regexp.MustCompile(`[^\w.-]`)

// ErrUnknownField is returned when a record has no file field of that name.
var ErrUnknownField = errors.New("upload: unknown file field")

// Uploader writes files to a blob store.
type Uploader struct {
	store  blob.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option customises an Uploader.
type Option func(*Uploader)

// WithClock fixes the time used to expand upload directories.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) { u.logger = l }
}

// New returns an Uploader backed by store.
func New(store blob.Store, opts ...Option) *Uploader {
	u := &Uploader{store: store, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Store returns the underlying blob store.
func (u *Uploader) Store() blob.Store { return u.store }

// ValidName reduces a client filename to a safe base name: directories are
// dropped, whitespace becomes underscores and anything outside
// [A-Za-z0-9_.-] is removed.
func ValidName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "upload"
	}
	return name
}

// Dir expands an upload_to pattern at t.
func Dir(pattern string, t time.Time) string {
	return strftime.Format(pattern, t)
}

// candidate returns the n-th key for name under dir; n = 0 is the plain name.
func candidate(dir, name string, n int) string {
	if n == 0 {
		return path.Join(dir, name)
	}
	ext := path.Ext(name)
	return path.Join(dir, strings.TrimSuffix(name, ext)+"_"+strconv.Itoa(n)+ext)
}

// Put stores r under pattern, suffixing the name with _1, _2, ... until the
// store accepts a key.
func (u *Uploader) Put(ctx context.Context, pattern, filename, contentType string, r io.Reader) (blob.Info, error) {
	dir := Dir(pattern, u.now())
	name := ValidName(filename)
	opts := blob.PutOptions{ContentType: contentType, OriginalName: filename}
	for n := range maxAttempts {
		key := candidate(dir, name, n)
		info, err := u.store.Put(ctx, key, r, opts)
		if errors.Is(err, blob.ErrExists) {
			continue
		}
		if err != nil {
			return blob.Info{}, fmt.Errorf("store %s: %w", key, err)
		}
		u.logger.DebugContext(ctx, "file stored", "key", key, "size", info.Size)
		return info, nil
	}
	return blob.Info{}, fmt.Errorf("store %s: no free name after %d attempts", path.Join(dir, name), maxAttempts)
}

// Attach stores r for the named file field of rec and records the key on it.
// A replaced file stays in the store.
func (u *Uploader) Attach(ctx context.Context, rec domain.FileHolder, field, filename, contentType string, r io.Reader) (blob.Info, error) {
	slot, ok := domain.LookupFileField(rec, field)
	if !ok {
		return blob.Info{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	info, err := u.Put(ctx, slot.UploadTo, filename, contentType, r)
	if err != nil {
		return blob.Info{}, err
	}
	*slot.Key = info.Key
	return info, nil
}

// Discard removes key; a missing key is not an error.
func (u *Uploader) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if _, err := u.store.Delete(ctx, key); err != nil {
		u.logger.WarnContext(ctx, "discard file failed", "key", key, "err", err)
	}
}

// Download is either a redirect URL or an open file.
type Download struct {
	URL  string
	Info blob.Info
	Body io.ReadCloser
}

// Open resolves key for download, preferring a presigned URL.
func (u *Uploader) Open(ctx context.Context, key string) (Download, error) {
	url, err := u.store.PresignURL(ctx, key, blob.SignedURLOptions{})
	switch {
	case err == nil:
		return Download{URL: url}, nil
	case !errors.Is(err, blob.ErrUnsupported):
		return Download{}, err
	}
	info, body, err := u.store.Get(ctx, key)
	if err != nil {
		return Download{}, err
	}
	return Download{Info: info, Body: body}, nil
}
