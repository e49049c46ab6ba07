package benchmark

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storebench/store"
)

func TestDoTest(t *testing.T) {
	bucket := store.NewMemBucket()
	r := &Runner{Factory: bucket.Factory()}

	res, err := r.DoTest(context.Background(), TrialConfig{
		Samples:  10,
		Workers:  4,
		FileSize: 1024,
		Prefix:   "perf",
		Verify:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Workers)
	assert.Equal(t, 10, res.Samples)
	assert.Equal(t, int64(1024), res.FileSize)
	assert.NoError(t, res.Err)

	for _, p := range []*PhaseResult{res.Write, res.Read} {
		assert.Equal(t, 10, p.Count())
		assert.Equal(t, int64(10240), p.Bytes)
		require.Greater(t, p.Total, time.Duration(0))
		assert.InDelta(t, 10240/p.Total.Seconds(), p.Throughput(), 1e-6)
	}

	writeKeys := res.Write.Keys()
	readKeys := res.Read.Keys()
	slices.Reverse(readKeys)
	assert.Equal(t, writeKeys, readKeys, "read phase must visit keys in reverse order")
	assert.Equal(t, "perf_0.bin", writeKeys[0])
	assert.Equal(t, "perf_9.bin", writeKeys[9])
	assert.Len(t, bucket.Keys(), 10)
}

func TestDoTestInvalid(t *testing.T) {
	r := &Runner{Factory: store.NewMemBucket().Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{Samples: 1, Workers: 0, FileSize: 1})
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	_, err = r.DoTest(context.Background(), TrialConfig{Samples: -1, Workers: 1, FileSize: 1})
	assert.Error(t, err)
}

// corruptOnRead rewrites key with same-sized garbage right before it is read.
func corruptOnRead(bucket *store.MemBucket, key string) {
	bucket.Hook = func(op, k string) error {
		if op == store.OpGet && k == key {
			data, _ := bucket.Object(k)
			bucket.Set(k, bytes.Repeat([]byte{0xff}, len(data)))
		}
		return nil
	}
}

func TestDoTestVerifyDetectsCorruption(t *testing.T) {
	bucket := store.NewMemBucket()
	corruptOnRead(bucket, "perf_5.bin")
	r := &Runner{Factory: bucket.Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{
		Samples: 8, Workers: 2, FileSize: 512, Prefix: "perf", Verify: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	var re *StorageReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "perf_5.bin", re.Key)
}

func TestDoTestWithoutVerifyIgnoresContent(t *testing.T) {
	bucket := store.NewMemBucket()
	corruptOnRead(bucket, "perf_5.bin")
	r := &Runner{Factory: bucket.Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{
		Samples: 8, Workers: 2, FileSize: 512, Prefix: "perf",
	})
	assert.NoError(t, err)
}

func TestDoTestShortRead(t *testing.T) {
	bucket := store.NewMemBucket()
	bucket.Hook = func(op, k string) error {
		if op == store.OpGet && k == "short_1.bin" {
			bucket.Set(k, []byte("tiny"))
		}
		return nil
	}
	r := &Runner{Factory: bucket.Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{
		Samples: 4, Workers: 1, FileSize: 64, Prefix: "short",
	})
	assert.ErrorIs(t, err, ErrShortRead)
	var pe *PoolExecutionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseRead, pe.Phase)
}

func TestDoTestCleanup(t *testing.T) {
	bucket := store.NewMemBucket()
	r := &Runner{Factory: bucket.Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{
		Samples: 6, Workers: 3, FileSize: 128, Prefix: "tmp", Cleanup: true,
	})
	require.NoError(t, err)
	assert.Empty(t, bucket.Keys())
}

func TestDoTestFloat32Payload(t *testing.T) {
	bucket := store.NewMemBucket()
	r := &Runner{Factory: bucket.Factory()}

	_, err := r.DoTest(context.Background(), TrialConfig{
		Samples: 1, Workers: 1, FileSize: 64, Prefix: "f32", Payload: PayloadFloat32, Verify: true,
	})
	require.NoError(t, err)
	data, ok := bucket.Object("f32_0.bin")
	require.True(t, ok)
	require.Len(t, data, 64)
	for i := 0; i < len(data); i += 4 {
		assert.Equal(t, float32(42.0), math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
	}
}

func TestDoTestQuiescenceInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bucket := store.NewMemBucket()
	r := &Runner{Factory: bucket.Factory()}

	// the write phase of one tiny object finishes long before this fires
	time.AfterFunc(100*time.Millisecond, cancel)
	start := time.Now()
	_, err := r.DoTest(ctx, TrialConfig{
		Samples: 1, Workers: 1, FileSize: 8, Prefix: "q", Quiescence: time.Minute,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted between phases")
	var pe *PoolExecutionError
	assert.False(t, errors.As(err, &pe), "the write phase must have completed")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"q_0.bin"}, bucket.Keys())
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
