package benchmark

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultHeaderBytes is how much of an object an "open" fetches.
const DefaultHeaderBytes = 64 * 1024

// FormatMode is how a format scan touches an object.
type FormatMode string

const (
	FormatOpen FormatMode = PhaseOpen // ranged read of the header only
	FormatLoad FormatMode = PhaseLoad // full read
	FormatRef  FormatMode = PhaseRef  // reference index sidecar, then full read
)

// RefSuffix is appended to a key to name its reference index sidecar.
const RefSuffix = ".json"

// ParseFormatMode validates a mode name.
func ParseFormatMode(s string) (FormatMode, error) {
	switch m := FormatMode(s); m {
	case FormatOpen, FormatLoad, FormatRef:
		return m, nil
	default:
		return "", errors.Errorf("unknown mode %q (expected open, load or ref)", s)
	}
}

// ParseFormatModes parses a comma-separated mode list; empty means open,load.
func ParseFormatModes(s string) ([]FormatMode, error) {
	var modes []FormatMode
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		m, err := ParseFormatMode(f)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// FormatConfig describes a read matrix over existing objects, typically the
// same dataset stored in several file formats.
type FormatConfig struct {
	Keys        []string
	Modes       []FormatMode
	Iterations  int
	HeaderBytes int64
}

// FormatResult is one timed access of the read matrix.
type FormatResult struct {
	Iteration int
	Key       string
	FileType  string // key extension without the dot
	Mode      FormatMode
	Duration  time.Duration
	Bytes     int64
}

// Throughput returns bytes per second for this access.
func (f *FormatResult) Throughput() float64 {
	if f.Duration <= 0 {
		return 0
	}
	return float64(f.Bytes) / f.Duration.Seconds()
}

// FormatSink receives each access as soon as it is timed.
type FormatSink interface {
	WriteFormat(*FormatResult) error
}

// FileType returns the extension of key without the leading dot.
func FileType(key string) string {
	return strings.TrimPrefix(path.Ext(key), ".")
}

// FormatScan times every (iteration, key, mode) combination sequentially over a
// single connection and streams the rows to sink. It returns the number of rows
// written; the first failure stops the scan.
func (r *Runner) FormatScan(ctx context.Context, cfg FormatConfig, sink FormatSink) (int, error) {
	if len(cfg.Keys) == 0 {
		return 0, errors.New("format scan: no keys given")
	}
	modes := cfg.Modes
	if len(modes) == 0 {
		modes = []FormatMode{FormatOpen, FormatLoad}
	}
	header := cfg.HeaderBytes
	if header <= 0 {
		header = DefaultHeaderBytes
	}
	logger := r.logger()

	st, err := r.Factory(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "format scan: open store")
	}
	defer st.Close()

	rows := 0
	for i := range max(cfg.Iterations, 1) {
		for _, key := range cfg.Keys {
			for _, mode := range modes {
				logger.Info("format read", zap.Int("iteration", i), zap.String("key", key), zap.String("mode", string(mode)))
				opCtx, cancel := ctx, context.CancelFunc(func() {})
				if r.OpTimeout > 0 {
					opCtx, cancel = context.WithTimeout(ctx, r.OpTimeout)
				}
				op := Operation{Key: key}
				var s Sample
				switch mode {
				case FormatOpen:
					s, err = OpenFile(opCtx, st, op, header)
				case FormatRef:
					s, err = ReadWithReference(opCtx, st, op)
				default:
					s, err = ReadFile(opCtx, st, op)
				}
				cancel()
				r.Metrics.observeOp(string(mode), 1, s.Duration, err)
				if err != nil {
					return rows, errors.Wrapf(err, "iteration %d", i)
				}
				res := &FormatResult{
					Iteration: i,
					Key:       key,
					FileType:  FileType(key),
					Mode:      mode,
					Duration:  s.Duration,
					Bytes:     s.Bytes,
				}
				if sink != nil {
					if err := sink.WriteFormat(res); err != nil {
						return rows, errors.Wrap(err, "failed to write result row")
					}
				}
				rows++
			}
		}
	}
	return rows, nil
}
