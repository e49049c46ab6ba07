// Package store adapts object-storage backends to the minimal surface the
// benchmark harness needs: put, get, ranged get and delete by key.
package store

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys a backend cannot map to an object.
var ErrInvalidKey = errors.New("invalid object key")

// Store is one connection to a bucket. Implementations are not required to be
// safe for concurrent use; each worker obtains its own through a Factory.
type Store interface {
	// Put stores size bytes read from body under key.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	// Get streams the full object into w and returns the number of bytes copied.
	Get(ctx context.Context, key string, w io.Writer) (int64, error)
	// GetRange streams length bytes starting at off into w; a negative length
	// reads to the end of the object.
	GetRange(ctx context.Context, key string, off, length int64, w io.Writer) (int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Factory opens a new, independent connection to a bucket.
type Factory func(ctx context.Context) (Store, error)

// Kind names a backend implementation.
type Kind string

const (
	KindS3  Kind = "s3"
	KindOCI Kind = "oci"
	KindFS  Kind = "fs"
	KindMem Kind = "mem"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindS3, KindOCI, KindFS, KindMem:
		return k, nil
	default:
		return "", errors.Errorf("unknown backend %q (expected s3, oci, fs or mem)", s)
	}
}

// IsThrottled reports whether err indicates the backend asked the client to slow down.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	return isS3Throttled(err) || isOCIThrottled(err)
}

func rangeHeader(off, length int64) string {
	if length < 0 {
		return fmt.Sprintf("bytes=%d-", off)
	}
	return fmt.Sprintf("bytes=%d-%d", off, off+length-1)
}
