package benchmark

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sink receives each trial as soon as it completes.
type Sink interface {
	WriteTrial(*TrialResult) error
}

// GridScan runs one trial per worker-pool size in cfg.Workers order and streams
// every row to sink. Under ErrorPolicyContinue a failed trial becomes a row with
// Err set; under ErrorPolicyAbort, or when ctx is cancelled, the scan stops and
// returns the rows completed so far together with the error.
func (r *Runner) GridScan(ctx context.Context, cfg GridConfig, sink Sink) ([]*TrialResult, error) {
	if len(cfg.Workers) == 0 {
		return nil, errors.New("grid scan: no worker counts given")
	}
	for _, w := range cfg.Workers {
		if w < 1 {
			return nil, errors.Wrapf(ErrInvalidWorkers, "grid scan: got %d", w)
		}
	}
	logger := r.logger()

	results := make([]*TrialResult, 0, len(cfg.Workers))
	for _, workers := range cfg.Workers {
		res, err := r.DoTest(ctx, cfg.trial(workers))
		if err != nil {
			if cfg.OnError == ErrorPolicyAbort || ctx.Err() != nil {
				return results, errors.Wrapf(err, "grid scan aborted at %d workers", workers)
			}
			logger.Error("trial failed, recording cell and continuing", zap.Int("workers", workers), zap.Error(err))
			res = &TrialResult{Workers: workers, Samples: cfg.Samples, FileSize: cfg.FileSize, Err: err}
		}
		results = append(results, res)
		if sink != nil {
			if err := sink.WriteTrial(res); err != nil {
				return results, errors.Wrap(err, "failed to write result row")
			}
		}
	}
	return results, nil
}
