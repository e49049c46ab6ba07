package benchmark

import (
	"bytes"
	"context"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"storebench/store"
)

// WriteRandomFile generates op.Size bytes and stores them under op.Key. Only the
// store round-trip is timed.
func WriteRandomFile(ctx context.Context, st store.Store, op Operation, payload PayloadKind) (Sample, error) {
	data := GetBuffer(int(op.Size))
	defer PutBuffer(data)

	if err := FillPayload(data, payload); err != nil {
		return Sample{Key: op.Key}, &StorageWriteError{Key: op.Key, Err: err}
	}
	s := Sample{Key: op.Key, Sum: xxhash.Sum64(data)}

	d, err := Time(func() error {
		return st.Put(ctx, op.Key, bytes.NewReader(data), op.Size)
	})
	s.Duration = d
	if err != nil {
		return s, &StorageWriteError{Key: op.Key, Err: err}
	}
	s.Bytes = op.Size
	return s, nil
}

// ReadFile retrieves the full content of op.Key, hashing it as it streams.
func ReadFile(ctx context.Context, st store.Store, op Operation) (Sample, error) {
	var (
		h = xxhash.New()
		n int64
	)
	d, err := Time(func() (err error) {
		n, err = st.Get(ctx, op.Key, h)
		return err
	})
	s := Sample{Key: op.Key, Duration: d, Bytes: n, Sum: h.Sum64()}
	if err != nil {
		return s, &StorageReadError{Key: op.Key, Err: err}
	}
	if op.Size > 0 && n != op.Size {
		return s, &StorageReadError{Key: op.Key, Err: errors.Wrapf(ErrShortRead, "got %d of %d bytes", n, op.Size)}
	}
	return s, nil
}

// OpenFile fetches the first headerBytes of op.Key with a single ranged read,
// the way format readers fetch metadata before touching the data.
func OpenFile(ctx context.Context, st store.Store, op Operation, headerBytes int64) (Sample, error) {
	h := xxhash.New()
	var n int64
	d, err := Time(func() (err error) {
		n, err = st.GetRange(ctx, op.Key, 0, headerBytes, h)
		return err
	})
	s := Sample{Key: op.Key, Duration: d, Bytes: n, Sum: h.Sum64()}
	if err != nil {
		return s, &StorageReadError{Key: op.Key, Err: err}
	}
	return s, nil
}

// ReadWithReference reads the reference index <key>.json and then the object
// itself, the way reference-based readers resolve byte ranges before loading.
// The sample covers both requests.
func ReadWithReference(ctx context.Context, st store.Store, op Operation) (Sample, error) {
	ref, err := ReadFile(ctx, st, Operation{Key: op.Key + RefSuffix})
	if err != nil {
		return Sample{Key: op.Key, Duration: ref.Duration}, err
	}
	data, err := ReadFile(ctx, st, op)
	data.Duration += ref.Duration
	data.Bytes += ref.Bytes
	return data, err
}

// DeleteFile removes op.Key; a missing object is not an error.
func DeleteFile(ctx context.Context, st store.Store, op Operation) (Sample, error) {
	d, err := Time(func() error {
		return st.Delete(ctx, op.Key)
	})
	s := Sample{Key: op.Key, Duration: d}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return s, &StorageDeleteError{Key: op.Key, Err: err}
	}
	return s, nil
}
