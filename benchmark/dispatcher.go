package benchmark

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storebench/store"
)

// Phase names.
const (
	PhaseWrite  = "write"
	PhaseRead   = "read"
	PhaseDelete = "delete"
	PhaseOpen   = "open"
	PhaseLoad   = "load"
	PhaseRef    = "ref"
)

type opFunc func(ctx context.Context, st store.Store, op Operation) (Sample, error)

// Dispatcher runs a list of operations on a bounded pool of workers. Each worker
// opens its own store connection through Factory and keeps it for the phase.
type Dispatcher struct {
	Workers   int
	Factory   store.Factory
	Limiter   *rate.Limiter // shared by all workers; nil means unlimited
	OpTimeout time.Duration // per-operation deadline; 0 means none
	Logger    *zap.Logger
	Metrics   *Metrics
	OnDone    func() // called after each successful operation
}

// WriteTest writes every operation's payload and returns the write phase.
func (d *Dispatcher) WriteTest(ctx context.Context, ops []Operation, payload PayloadKind) (*PhaseResult, error) {
	return d.run(ctx, PhaseWrite, ops, func(ctx context.Context, st store.Store, op Operation) (Sample, error) {
		return WriteRandomFile(ctx, st, op, payload)
	})
}

// ReadTest reads every operation's object in full and returns the read phase.
func (d *Dispatcher) ReadTest(ctx context.Context, ops []Operation) (*PhaseResult, error) {
	return d.run(ctx, PhaseRead, ops, ReadFile)
}

// DeleteTest removes every operation's object.
func (d *Dispatcher) DeleteTest(ctx context.Context, ops []Operation) (*PhaseResult, error) {
	return d.run(ctx, PhaseDelete, ops, DeleteFile)
}

// run blocks until all operations completed or the first one failed. On failure
// the remaining work is abandoned and the error is a *PoolExecutionError.
func (d *Dispatcher) run(ctx context.Context, phase string, ops []Operation, fn opFunc) (*PhaseResult, error) {
	if d.Workers < 1 {
		return nil, errors.Wrapf(ErrInvalidWorkers, "%s phase: got %d", phase, d.Workers)
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("phase", phase), zap.Int("workers", d.Workers))

	samples := make([]Sample, len(ops))
	next := make(chan int, len(ops))
	for i := range ops {
		next <- i
	}
	close(next)

	var timer Timer
	timer.Start()
	g, gctx := errgroup.WithContext(ctx)
	for w := range min(d.Workers, len(ops)) {
		g.Go(func() error {
			st, err := d.Factory(gctx)
			if err != nil {
				return &PoolExecutionError{Phase: phase, Workers: d.Workers, Index: -1, Err: errors.Wrapf(err, "worker %d: open store", w)}
			}
			defer st.Close()

			for i := range next {
				if gctx.Err() != nil {
					return nil // the first failure is already recorded
				}
				if d.Limiter != nil {
					if err := d.Limiter.Wait(gctx); err != nil {
						return &PoolExecutionError{Phase: phase, Workers: d.Workers, Index: i, Err: errors.Wrap(err, "rate limiter")}
					}
				}
				s, err := d.do(gctx, st, ops[i], fn)
				d.Metrics.observeOp(phase, d.Workers, s.Duration, err)
				if err != nil {
					if store.IsThrottled(err) {
						logger.Warn("429 TooManyRequests: throttling detected", zap.String("key", ops[i].Key), zap.Error(err))
					} else {
						logger.Error("operation failed", zap.String("key", ops[i].Key), zap.Error(err))
					}
					return &PoolExecutionError{Phase: phase, Workers: d.Workers, Index: i, Err: err}
				}
				samples[i] = s
				if d.OnDone != nil {
					d.OnDone()
				}
			}
			return nil
		})
	}
	err := g.Wait()
	total := timer.Stop()
	if err == nil && ctx.Err() != nil {
		err = &PoolExecutionError{Phase: phase, Workers: d.Workers, Index: -1, Err: ctx.Err()}
	}
	if err != nil {
		return nil, err
	}

	res := &PhaseResult{Op: phase, Samples: samples, Total: total}
	for _, s := range samples {
		res.Bytes += s.Bytes
	}
	d.Metrics.observePhase(res, d.Workers)
	logger.Debug("phase complete",
		zap.Int("ops", len(ops)),
		zap.Duration("total", total),
		zap.Float64("throughput_bps", res.Throughput()))
	return res, nil
}

func (d *Dispatcher) do(ctx context.Context, st store.Store, op Operation, fn opFunc) (Sample, error) {
	if d.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.OpTimeout)
		defer cancel()
	}
	return fn(ctx, st, op)
}
