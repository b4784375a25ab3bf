package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName_Sanitizes(t *testing.T) {
	n := objectName("../../etc/my voice?.wav")
	assert.True(t, strings.HasSuffix(n, "-my_voice_.wav"), n)
	assert.NotContains(t, n, "/")

	assert.True(t, strings.HasSuffix(objectName(""), "-audio.wav"))
}

func TestLocalStore_Upload(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	ref, err := s.Upload(context.Background(), "r1", "q.wav", "audio/wav", strings.NewReader("RIFF"), 4)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(ref))
	assert.Equal(t, filepath.Join(root, "r1"), filepath.Dir(ref))
	b, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(b))

	require.NoError(t, s.Remove(context.Background(), ref))
	_, err = os.Stat(ref)
	assert.True(t, os.IsNotExist(err), "uploaded file must be gone")
	assert.NoError(t, s.Remove(context.Background(), ref), "second remove is a no-op")
}

func TestLocalStore_RemoveOutsideRoot(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "keep.wav")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.Error(t, s.Remove(context.Background(), outside))
	assert.Error(t, s.Remove(context.Background(), filepath.Join(s.root, "..", "keep.wav")))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestS3Store_Upload(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		urlPth string
		body   string
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, urlPth, body, ctype = r.Method, r.URL.Path, string(b), r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewS3Store(S3Config{
		Bucket:       "audio",
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
		Prefix:       "live",
	})
	ref, err := s.Upload(context.Background(), "r1", "q.wav", "audio/wav", strings.NewReader("RIFF"), 4)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(urlPth, "/audio/live/r1/"), urlPth)
	assert.Equal(t, "RIFF", body)
	assert.Equal(t, "audio/wav", ctype)
	assert.True(t, strings.HasPrefix(ref, "s3://audio/live/r1/"), ref)
	uploaded := urlPth
	mu.Unlock()

	require.NoError(t, s.Remove(context.Background(), ref))
	mu.Lock()
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, uploaded, urlPth)

	assert.Error(t, s.Remove(context.Background(), "s3://other/live/r1/x.wav"))
}
