package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return s
}

func TestPutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	assert.Equal(t, core.DriverFilesystem, s.Driver())

	info, err := s.Put(ctx, "cloning/2024/05/06/gel.png", strings.NewReader("png-bytes"), core.PutOptions{
		ContentType:  "image/png",
		OriginalName: "My Gel.png",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size)
	assert.Len(t, info.ETag, 64)
	assert.FileExists(t, filepath.Join(s.Root(), "cloning", "2024", "05", "06", "gel.png"))

	head, err := s.Head(ctx, "cloning/2024/05/06/gel.png")
	require.NoError(t, err)
	assert.Equal(t, info, head)
	assert.Equal(t, "My Gel.png", head.OriginalName)

	got, rc, err := s.Get(ctx, "cloning/2024/05/06/gel.png")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "image/png", got.ContentType)

	existed, err := s.Delete(ctx, "cloning/2024/05/06/gel.png")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = s.Delete(ctx, "cloning/2024/05/06/gel.png")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.Head(ctx, "cloning/2024/05/06/gel.png")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.Put(ctx, "protocol/lysis.pdf", strings.NewReader("v1"), core.PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "protocol/lysis.pdf", strings.NewReader("v2"), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)

	data, err := os.ReadFile(filepath.Join(s.Root(), "protocol", "lysis.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, key := range []string{"", "  ", "/etc/passwd", "../escape", "a/../../b", `a\b`, "x.meta", "."} {
		_, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{})
		assert.ErrorIs(t, err, core.ErrInvalidKey, key)
	}
}

func TestMissingFile(t *testing.T) {
	s := newStore(t)
	_, _, err := s.Get(context.Background(), "raw/none.bin")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestPresignUnsupported(t *testing.T) {
	s := newStore(t)
	_, err := s.PresignURL(context.Background(), "raw/a", core.SignedURLOptions{})
	require.ErrorIs(t, err, core.ErrUnsupported)
}

func TestCanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Put(ctx, "raw/a", strings.NewReader("x"), core.PutOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewDefaultsRoot(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRoot, s.Root())
	assert.DirExists(t, filepath.Join(dir, "media"))
}
