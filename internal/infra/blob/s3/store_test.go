package s3

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"experimentdb/internal/blob/core"
)

// fakeBucket answers the object calls the store issues against a path style
// endpoint.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	puts    int
}

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

func respond(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body))}
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return respond(http.StatusBadRequest, nil, nil), nil
	}
	key := parts[1]
	obj, ok := f.objects[key]
	switch req.Method {
	case http.MethodHead, http.MethodGet:
		if !ok {
			if req.Method == http.MethodGet {
				return respond(http.StatusNotFound, []byte(`<Error><Code>NoSuchKey</Code></Error>`),
					http.Header{"Content-Type": {"application/xml"}}), nil
			}
			return respond(http.StatusNotFound, nil, nil), nil
		}
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"abc123"`},
			"Last-Modified":  {time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat)},
		}
		for k, v := range obj.meta {
			h.Set("X-Amz-Meta-"+k, v)
		}
		if req.Method == http.MethodHead {
			return respond(http.StatusOK, nil, h), nil
		}
		return respond(http.StatusOK, obj.body, h), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") ||
			strings.HasPrefix(req.Header.Get("X-Amz-Content-Sha256"), "STREAMING") {
			body = decodeChunks(body)
		}
		meta := map[string]string{}
		for k, v := range req.Header {
			if name, found := strings.CutPrefix(strings.ToLower(k), "x-amz-meta-"); found {
				meta[name] = v[0]
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), meta: meta}
		f.puts++
		return respond(http.StatusOK, nil, http.Header{"Etag": {`"abc123"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

// decodeChunks strips aws-chunked framing: <hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeChunks(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n == 0 {
			return out
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newFakeStore(t *testing.T) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]fakeObject{}}
	store, err := New(context.Background(), Config{
		Bucket:          "lab-media",
		Endpoint:        "https://s3.test.local",
		PathStyle:       true,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		HTTPClient:      &http.Client{Transport: bucket},
	})
	require.NoError(t, err)
	return store, bucket
}

func TestPutHeadGetDelete(t *testing.T) {
	ctx := context.Background()
	store, bucket := newFakeStore(t)
	assert.Equal(t, core.DriverS3, store.Driver())
	assert.Equal(t, "lab-media", store.Bucket())

	info, err := store.Put(ctx, "raw/2024/01/02/scan.tif", bytes.NewReader([]byte("tiff")), core.PutOptions{
		ContentType:  "image/tiff",
		OriginalName: "scan.tif",
	})
	require.NoError(t, err)
	assert.Equal(t, "raw/2024/01/02/scan.tif", info.Key)
	assert.Equal(t, "image/tiff", info.ContentType)
	assert.Equal(t, "abc123", info.ETag)
	assert.Equal(t, "scan.tif", info.OriginalName)

	_, rc, err := store.Get(ctx, "raw/2024/01/02/scan.tif")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "tiff", string(data))

	_, err = store.Put(ctx, "raw/2024/01/02/scan.tif", bytes.NewReader([]byte("again")), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)
	assert.Equal(t, 1, bucket.puts)

	existed, err := store.Delete(ctx, "raw/2024/01/02/scan.tif")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = store.Delete(ctx, "raw/2024/01/02/scan.tif")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMissingKeysMapToNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)
	_, err := store.Head(ctx, "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = store.Get(ctx, "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestPresignURL(t *testing.T) {
	store, _ := newFakeStore(t)
	url, err := store.PresignURL(context.Background(), "protocol/lysis.pdf", core.SignedURLOptions{Expiry: time.Minute})
	require.NoError(t, err)
	assert.Contains(t, url, "https://s3.test.local/lab-media/protocol/lysis.pdf")
	assert.Contains(t, url, "X-Amz-Expires=60")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestEmptyKeyRejected(t *testing.T) {
	store, _ := newFakeStore(t)
	_, err := store.Put(context.Background(), "", strings.NewReader("x"), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrInvalidKey)
}
