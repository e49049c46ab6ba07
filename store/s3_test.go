package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a path-style S3 endpoint serving a single bucket.
type fakeS3 struct {
	bucket  string
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + f.bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)
	if key == "throttled.bin" {
		writeS3Error(w, http.StatusServiceUnavailable, "SlowDown")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><RequestId>1</RequestId></Error>`, code, code)
}

func newFakeS3(t *testing.T) (*fakeS3, Factory) {
	t.Helper()
	fake := &fakeS3{bucket: "bench", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, NewS3Factory(S3Options{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Bucket:    "bench",
	})
}

func TestS3Store(t *testing.T) {
	fake, factory := newFakeS3(t)
	exercise(t, factory)
	assert.Empty(t, fake.objects)
}

func TestS3StoreThrottled(t *testing.T) {
	_, factory := newFakeS3(t)
	st, err := factory(context.Background())
	require.NoError(t, err)
	defer st.Close()

	err = st.Put(context.Background(), "throttled.bin", bytes.NewReader([]byte("x")), 1)
	require.Error(t, err)
	assert.True(t, IsThrottled(err), "got %v", err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestS3StoreEmptyObjectHeaderRange(t *testing.T) {
	_, factory := newFakeS3(t)
	emptyObjectHeaderRange(t, factory)

	st, err := factory(context.Background())
	require.NoError(t, err)
	defer st.Close()
	// only a range starting at 0 is forgiven
	_, err = st.GetRange(context.Background(), "empty.nc", 10, 5, &bytes.Buffer{})
	assert.Error(t, err)
}
