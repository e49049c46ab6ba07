package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storebench/progress"
	"storebench/store"
)

// Runner executes trials and grid scans against one backend.
type Runner struct {
	Factory      store.Factory
	OpTimeout    time.Duration
	RateLimit    int // operations per second across the pool, 0 = unlimited
	Logger       *zap.Logger
	Metrics      *Metrics
	ShowProgress bool
}

// TrialResult pairs the write and read phases of one trial. Err is set only for
// cells a grid scan recorded as failed; Write and Read are nil then.
type TrialResult struct {
	Workers  int
	Samples  int
	FileSize int64
	Write    *PhaseResult
	Read     *PhaseResult
	Err      error
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// dispatcher builds a pool for one phase; the returned func finishes its progress bar.
func (r *Runner) dispatcher(workers int, caption string, total int) (*Dispatcher, func()) {
	d := &Dispatcher{
		Workers:   workers,
		Factory:   r.Factory,
		OpTimeout: r.OpTimeout,
		Logger:    r.logger(),
		Metrics:   r.Metrics,
	}
	if r.RateLimit > 0 {
		d.Limiter = rate.NewLimiter(rate.Limit(r.RateLimit), 1)
	}
	if !r.ShowProgress || total == 0 {
		return d, func() {}
	}
	bar := progress.NewProgressBar(int64(total)).SetCaption(caption)
	d.OnDone = func() { bar.Increment() }
	return d, func() { bar.Finish() }
}

// WriteTest runs a write phase of ops on a pool of the given size.
func (r *Runner) WriteTest(ctx context.Context, workers int, ops []Operation, payload PayloadKind) (*PhaseResult, error) {
	d, done := r.dispatcher(workers, fmt.Sprintf("Uploading (%d workers)", workers), len(ops))
	defer done()
	return d.WriteTest(ctx, ops, payload)
}

// ReadTest runs a read phase of ops on a pool of the given size.
func (r *Runner) ReadTest(ctx context.Context, workers int, ops []Operation) (*PhaseResult, error) {
	d, done := r.dispatcher(workers, fmt.Sprintf("Downloading (%d workers)", workers), len(ops))
	defer done()
	return d.ReadTest(ctx, ops)
}

// Cleanup deletes the objects of ops. Missing objects are ignored.
func (r *Runner) Cleanup(ctx context.Context, workers int, ops []Operation) (*PhaseResult, error) {
	d, done := r.dispatcher(workers, "Deleting", len(ops))
	defer done()
	return d.DeleteTest(ctx, ops)
}

// DoTest writes cfg.Samples objects, waits cfg.Quiescence, then reads them back
// in reverse order so the read phase cannot profit from write-order locality.
func (r *Runner) DoTest(ctx context.Context, cfg TrialConfig) (*TrialResult, error) {
	if cfg.Workers < 1 {
		return nil, errors.Wrapf(ErrInvalidWorkers, "got %d", cfg.Workers)
	}
	if cfg.Samples < 0 || cfg.FileSize < 0 {
		return nil, errors.Errorf("invalid trial: %d samples of %d bytes", cfg.Samples, cfg.FileSize)
	}
	logger := r.logger().With(
		zap.Int("workers", cfg.Workers),
		zap.Int("samples", cfg.Samples),
		zap.Int64("file_size", cfg.FileSize))

	ops := BuildOperations(cfg.Prefix, cfg.Samples, cfg.FileSize)
	if cfg.Cleanup {
		defer func() {
			if ctx.Err() != nil {
				return
			}
			if _, err := r.Cleanup(ctx, cfg.Workers, ops); err != nil {
				logger.Warn("cleanup failed", zap.Error(err))
			}
		}()
	}

	logger.Info("write phase", zap.String("prefix", cfg.Prefix))
	write, err := r.WriteTest(ctx, cfg.Workers, ops, cfg.Payload)
	if err != nil {
		return nil, err
	}

	if err := sleepCtx(ctx, cfg.Quiescence); err != nil {
		return nil, errors.Wrap(err, "interrupted between phases")
	}

	logger.Info("read phase")
	read, err := r.ReadTest(ctx, cfg.Workers, Reversed(ops))
	if err != nil {
		return nil, err
	}
	if cfg.Verify {
		if err := verifySums(write, read); err != nil {
			return nil, err
		}
	}

	logger.Info("trial complete",
		zap.Duration("write_total", write.Total),
		zap.Float64("write_bps", write.Throughput()),
		zap.Duration("read_total", read.Total),
		zap.Float64("read_bps", read.Throughput()))
	return &TrialResult{
		Workers:  cfg.Workers,
		Samples:  cfg.Samples,
		FileSize: cfg.FileSize,
		Write:    write,
		Read:     read,
	}, nil
}

func verifySums(write, read *PhaseResult) error {
	written := make(map[string]uint64, len(write.Samples))
	for _, s := range write.Samples {
		written[s.Key] = s.Sum
	}
	for _, s := range read.Samples {
		if want, ok := written[s.Key]; ok && want != s.Sum {
			return &StorageReadError{Key: s.Key, Err: errors.Wrapf(ErrChecksumMismatch, "wrote %016x, read %016x", want, s.Sum)}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
