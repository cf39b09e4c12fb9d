package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/blob"
	"experimentdb/pkg/domain"
)

var fixed = time.Date(2011, 3, 9, 14, 0, 0, 0, time.UTC)

func newUploader(t *testing.T) (*Uploader, blob.Store) {
	t.Helper()
	store := blob.NewMemory()
	return New(store, WithClock(func() time.Time { return fixed })), store
}

func TestValidName(t *testing.T) {
	cases := map[string]string{
		"gel image.png":         "gel_image.png",
		`C:\scans\lane 3.tif`:   "lane_3.tif",
		"../../etc/passwd":      "passwd",
		"résumé (final).pdf":    "rsum_final.pdf",
		"...":                   "upload",
		"":                      "upload",
		".hidden":               "hidden",
		"trace-01_a.ab1":        "trace-01_a.ab1",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidName(in), in)
	}
}

func TestDirExpandsDatePattern(t *testing.T) {
	assert.Equal(t, "cloning/2011/03/09", Dir(domain.UploadCloningGel, fixed))
	assert.Equal(t, "protocol", Dir(domain.UploadProtocol, fixed))
	assert.Equal(t, "final/2011/03/09", Dir(domain.UploadFinal, fixed))
}

func TestPutSuffixesCollisions(t *testing.T) {
	ctx := context.Background()
	u, _ := newUploader(t)

	var keys []string
	for range 3 {
		info, err := u.Put(ctx, domain.UploadRaw, "scan.tif", "image/tiff", strings.NewReader("x"))
		require.NoError(t, err)
		keys = append(keys, info.Key)
	}
	assert.Equal(t, []string{
		"raw/2011/03/09/scan.tif",
		"raw/2011/03/09/scan_1.tif",
		"raw/2011/03/09/scan_2.tif",
	}, keys)
}

func TestAttachWritesKeyOnRecord(t *testing.T) {
	ctx := context.Background()
	u, store := newUploader(t)

	r := domain.Result{ID: 1}
	info, err := u.Attach(ctx, &r, "result_figure1", "figure 1.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "final/2011/03/09/figure_1.png", r.ResultFigure1)
	assert.Equal(t, r.ResultFigure1, info.Key)

	head, err := store.Head(ctx, r.ResultFigure1)
	require.NoError(t, err)
	assert.Equal(t, "figure 1.png", head.OriginalName)

	_, err = u.Attach(ctx, &r, "gel", "x.png", "", strings.NewReader(""))
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestOpenStreamsWhenPresignUnsupported(t *testing.T) {
	ctx := context.Background()
	u, _ := newUploader(t)
	p := domain.Protocol{Name: "Lysis"}
	_, err := u.Attach(ctx, &p, "protocol_file", "lysis.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	dl, err := u.Open(ctx, p.File)
	require.NoError(t, err)
	require.NotNil(t, dl.Body)
	defer dl.Body.Close()
	assert.Empty(t, dl.URL)
	b, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "%PDF", string(b))
	assert.Equal(t, "application/pdf", dl.Info.ContentType)

	_, err = u.Open(ctx, "protocol/missing.pdf")
	require.ErrorIs(t, err, blob.ErrNotFound)
}

type presigning struct{ blob.Store }

func (presigning) PresignURL(_ context.Context, key string, _ blob.SignedURLOptions) (string, error) {
	return "https://media.example/" + key, nil
}

func TestOpenPrefersPresignedURL(t *testing.T) {
	u := New(presigning{blob.NewMemory()})
	dl, err := u.Open(context.Background(), "raw/a.bin")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/raw/a.bin", dl.URL)
	assert.Nil(t, dl.Body)
}

type brokenStore struct{ blob.Store }

func (brokenStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk full")
}

func (brokenStore) Delete(context.Context, string) (bool, error) {
	return false, errors.New("disk gone")
}

func TestPutAndDiscardFailures(t *testing.T) {
	u := New(brokenStore{blob.NewMemory()})
	_, err := u.Put(context.Background(), domain.UploadProtocol, "a.pdf", "", strings.NewReader(""))
	require.ErrorContains(t, err, "store protocol/a.pdf: disk full")

	u.Discard(context.Background(), "protocol/a.pdf")
	u.Discard(context.Background(), "")
}
