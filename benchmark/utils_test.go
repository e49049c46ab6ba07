package benchmark

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNaming(t *testing.T) {
	assert.Equal(t, "perf_7.bin", ObjectName("perf", 7))
	assert.Equal(t, "perf-w16", TrialPrefix("perf", 16))

	ops := BuildOperations("p", 3, 42)
	assert.Equal(t, []Operation{{"p_0.bin", 42}, {"p_1.bin", 42}, {"p_2.bin", 42}}, ops)

	rev := Reversed(ops)
	assert.Equal(t, "p_2.bin", rev[0].Key)
	assert.Equal(t, "p_0.bin", ops[0].Key, "Reversed must not modify its input")
}

func TestGenerateRandomName(t *testing.T) {
	a, err := GenerateRandomName(8)
	require.NoError(t, err)
	b, err := GenerateRandomName(8)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestCheckLogForThrottling(t *testing.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "clean.txt")
	throttled := filepath.Join(dir, "throttled.txt")
	require.NoError(t, os.WriteFile(clean, []byte("INFO\twrite phase\nERROR\toperation failed 500\n"), 0o644))
	require.NoError(t, os.WriteFile(throttled, []byte("INFO\twrite phase\nWARN\t429 TooManyRequests: throttling detected\n"), 0o644))

	found, err := CheckLogForThrottling(clean)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = CheckLogForThrottling(throttled)
	require.NoError(t, err)
	assert.True(t, found)

	_, err = CheckLogForThrottling(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFillPayload(t *testing.T) {
	buf := make([]byte, 10)
	require.NoError(t, FillPayload(buf, PayloadFloat32))
	assert.Equal(t, float32(42.0), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(42.0), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, []byte{0, 0}, buf[8:])

	a, b := make([]byte, 64), make([]byte, 64)
	require.NoError(t, FillPayload(a, PayloadRandom))
	require.NoError(t, FillPayload(b, ""))
	assert.NotEqual(t, a, b)

	assert.Error(t, FillPayload(buf, PayloadKind("zeros")))
}

func TestBufferPool(t *testing.T) {
	small := GetBuffer(16)
	assert.Len(t, small, 16)
	PutBuffer(small)

	big := GetBuffer(1 << 20)
	assert.Len(t, big, 1<<20)
	PutBuffer(big)
}

func TestParseOptions(t *testing.T) {
	p, err := ParsePayload("")
	require.NoError(t, err)
	assert.Equal(t, PayloadRandom, p)
	_, err = ParsePayload("zeros")
	assert.Error(t, err)

	e, err := ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ErrorPolicyContinue, e)
	e, err = ParseErrorPolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, ErrorPolicyAbort, e)
	_, err = ParseErrorPolicy("retry")
	assert.Error(t, err)
}

func TestTimer(t *testing.T) {
	var tm Timer
	tm.Start()
	time.Sleep(5 * time.Millisecond)
	d := tm.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, d, tm.Duration)

	d, err := Time(func() error {
		time.Sleep(2 * time.Millisecond)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
}

func TestPhaseStats(t *testing.T) {
	p := &PhaseResult{Op: PhaseRead, Total: 2 * time.Second, Bytes: 1000}
	for i := 100; i >= 1; i-- {
		p.Samples = append(p.Samples, Sample{Duration: time.Duration(i) * time.Millisecond})
	}
	st := p.Stats()
	assert.Equal(t, time.Millisecond, st.Min)
	assert.Equal(t, 100*time.Millisecond, st.Max)
	assert.Equal(t, 51*time.Millisecond, st.P50)
	assert.Equal(t, 91*time.Millisecond, st.P90)
	assert.Equal(t, 100*time.Millisecond, st.P99)
	assert.Equal(t, 5050*time.Millisecond, p.Sum())
	assert.Equal(t, 50500*time.Microsecond, p.Mean())
	assert.Equal(t, 500.0, p.Throughput())

	empty := &PhaseResult{}
	assert.Equal(t, LatencyStats{}, empty.Stats())
	assert.Zero(t, empty.Mean())
	assert.Zero(t, empty.Throughput())
}

func TestErrorMessages(t *testing.T) {
	err := &PoolExecutionError{Phase: PhaseWrite, Workers: 4, Index: 2, Err: &StorageWriteError{Key: "k", Err: errBoom}}
	assert.Equal(t, "write phase (4 workers), op #2: write k: boom", err.Error())
	err.Index = -1
	assert.Equal(t, "write phase (4 workers): write k: boom", err.Error())
}
