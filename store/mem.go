package store

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Operation names passed to MemBucket.Hook.
const (
	OpPut    = "put"
	OpGet    = "get"
	OpDelete = "delete"
)

// MemBucket is an in-process bucket. Every connection obtained from Factory
// shares the same objects. Latency is applied to each operation and honours
// context cancellation; Hook, if set, runs before each operation and may fail it.
type MemBucket struct {
	Latency time.Duration
	Hook    func(op, key string) error

	mu      sync.RWMutex
	objects map[string][]byte
	opens   atomic.Int64
	live    atomic.Int64
}

// NewMemBucket creates an empty bucket.
func NewMemBucket() *MemBucket {
	return &MemBucket{objects: make(map[string][]byte)}
}

// Factory returns a Factory that opens a new connection to the bucket.
func (b *MemBucket) Factory() Factory {
	return func(ctx context.Context) (Store, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.opens.Add(1)
		b.live.Add(1)
		return &memConn{b: b}, nil
	}
}

// Opens reports how many connections have been opened so far.
func (b *MemBucket) Opens() int64 { return b.opens.Load() }

// Live reports how many connections are currently open.
func (b *MemBucket) Live() int64 { return b.live.Load() }

// Keys returns the stored keys in lexical order.
func (b *MemBucket) Keys() []string {
	b.mu.RLock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Object returns a copy of the stored object.
func (b *MemBucket) Object(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[key]
	return bytes.Clone(data), ok
}

// Set stores data under key without going through a connection.
func (b *MemBucket) Set(key string, data []byte) {
	b.mu.Lock()
	b.objects[key] = bytes.Clone(data)
	b.mu.Unlock()
}

func (b *MemBucket) before(ctx context.Context, op, key string) error {
	if b.Latency > 0 {
		t := time.NewTimer(b.Latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if b.Hook != nil {
		return b.Hook(op, key)
	}
	return nil
}

type memConn struct {
	b      *MemBucket
	closed bool
}

// interface guard
var _ Store = (*memConn)(nil)

func (c *memConn) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	if err := c.b.before(ctx, OpPut, key); err != nil {
		return errors.Wrapf(err, "mem put %s", key)
	}
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return errors.Wrapf(err, "mem put %s", key)
	}
	if int64(len(data)) != size {
		return errors.Errorf("mem put %s: short body: %d of %d bytes", key, len(data), size)
	}
	c.b.mu.Lock()
	c.b.objects[key] = data
	c.b.mu.Unlock()
	return nil
}

func (c *memConn) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	return c.GetRange(ctx, key, 0, -1, w)
}

// GetRange with a negative length reads to the end of the object.
func (c *memConn) GetRange(ctx context.Context, key string, off, length int64, w io.Writer) (int64, error) {
	if err := c.b.before(ctx, OpGet, key); err != nil {
		return 0, errors.Wrapf(err, "mem get %s", key)
	}
	c.b.mu.RLock()
	data, ok := c.b.objects[key]
	c.b.mu.RUnlock()
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "mem get %s", key)
	}
	off = min(off, int64(len(data)))
	end := int64(len(data))
	if length >= 0 {
		end = min(off+length, end)
	}
	n, err := w.Write(data[off:end])
	return int64(n), errors.Wrapf(err, "mem get %s", key)
}

func (c *memConn) Delete(ctx context.Context, key string) error {
	if err := c.b.before(ctx, OpDelete, key); err != nil {
		return errors.Wrapf(err, "mem delete %s", key)
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if _, ok := c.b.objects[key]; !ok {
		return errors.Wrapf(ErrNotFound, "mem delete %s", key)
	}
	delete(c.b.objects, key)
	return nil
}

func (c *memConn) Close() error {
	if !c.closed {
		c.closed = true
		c.b.live.Add(-1)
	}
	return nil
}
