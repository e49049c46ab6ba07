package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"storebench/benchmark"
	"storebench/logging"
	"storebench/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseOptions(args)
	if err != nil {
		return err
	}

	logFileName := logging.FileName(time.Now())
	logger, closeLog, err := logging.New(o.logLevel, logFileName)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set system resource limits for high-performance testing
	if err := benchmark.SetMaxResources(logger); err != nil {
		logger.Warn("could not raise resource limits", zap.Error(err))
	}

	factory, err := newFactory(ctx, o, logger)
	if err != nil {
		return err
	}

	var metrics *benchmark.Metrics
	stopMetrics := func() {}
	if o.metricsAddr != "" {
		metrics = benchmark.NewMetrics()
		if stopMetrics, err = serveMetrics(o.metricsAddr, metrics, logger); err != nil {
			return err
		}
		defer stopMetrics()
	}

	if o.prefix == "" {
		name, err := benchmark.GenerateRandomName(4)
		if err != nil {
			return err
		}
		o.prefix = "storebench-" + name
	}

	r := &benchmark.Runner{
		Factory:      factory,
		OpTimeout:    o.opTimeout,
		RateLimit:    o.rateLimit,
		Logger:       logger,
		Metrics:      metrics,
		ShowProgress: !o.quiet,
	}
	logger.Info("starting",
		zap.String("operation", o.operation),
		zap.String("backend", string(o.backend)),
		zap.String("bucket", o.bucket),
		zap.String("prefix", o.prefix))

	err = dispatch(ctx, r, o)
	// the metrics server logs on shutdown, so it must stop before the log closes
	stopMetrics()
	closeLog()

	if found, cerr := benchmark.CheckLogForThrottling(logFileName); cerr == nil {
		if found {
			color.New(color.FgYellow).Printf("API Throttled: Check %s for more details.\n", logFileName)
		} else {
			fmt.Println("No API throttling detected.")
		}
	}
	return err
}

func dispatch(ctx context.Context, r *benchmark.Runner, o *options) error {
	ops := benchmark.BuildOperations(o.prefix, o.samples, o.fileSize)
	workers := o.workers[0]

	switch o.operation {
	case "GRID":
		fmt.Printf("Performing grid scan over %v workers...\n", o.workers)
		w, err := report.Create(o.output, o.format)
		if err != nil {
			return err
		}
		results, err := r.GridScan(ctx, benchmark.GridConfig{
			Samples:    o.samples,
			FileSize:   o.fileSize,
			Workers:    o.workers,
			Prefix:     o.prefix,
			Quiescence: o.quiescence,
			Payload:    o.payload,
			Verify:     o.verify,
			Cleanup:    o.cleanup,
			OnError:    o.onError,
		}, &displaySink{Sink: w})
		if err == nil {
			err = failedTrials(results, o.output)
		}
		return errors.Join(err, w.Close())

	case "TRIAL":
		fmt.Printf("Performing trial with %d workers...\n", workers)
		res, err := r.DoTest(ctx, benchmark.TrialConfig{
			Samples:    o.samples,
			Workers:    workers,
			FileSize:   o.fileSize,
			Prefix:     o.prefix,
			Quiescence: o.quiescence,
			Payload:    o.payload,
			Verify:     o.verify,
			Cleanup:    o.cleanup,
		})
		if err != nil {
			return err
		}
		report.DisplayTrial(os.Stdout, res)
		if o.output == "" {
			return nil
		}
		w, err := report.Create(o.output, o.format)
		if err != nil {
			return err
		}
		return errors.Join(w.WriteTrial(res), w.Close())

	case "PUT":
		fmt.Println("Performing PUT benchmark...")
		res, err := r.WriteTest(ctx, workers, ops, o.payload)
		if err != nil {
			return err
		}
		report.DisplayPhase(os.Stdout, res)
		fmt.Printf("Objects written under prefix %s\n", o.prefix)

	case "GET":
		fmt.Println("Performing GET benchmark...")
		res, err := r.ReadTest(ctx, workers, benchmark.Reversed(ops))
		if err != nil {
			return err
		}
		report.DisplayPhase(os.Stdout, res)

	case "DELETE":
		fmt.Println("Performing DELETE benchmark...")
		res, err := r.Cleanup(ctx, workers, ops)
		if err != nil {
			return err
		}
		report.DisplayPhase(os.Stdout, res)

	case "FORMATS":
		fmt.Printf("Performing format read benchmark over %d keys...\n", len(o.keys))
		w, err := report.Create(o.output, o.format)
		if err != nil {
			return err
		}
		n, err := r.FormatScan(ctx, benchmark.FormatConfig{
			Keys:        o.keys,
			Modes:       o.modes,
			Iterations:  o.iterations,
			HeaderBytes: o.headerBytes,
		}, w)
		fmt.Printf("%d rows written to %s\n", n, o.output)
		return errors.Join(err, w.Close())
	}
	return nil
}

// displaySink prints each trial as it is recorded.
type displaySink struct {
	benchmark.Sink
}

func (d *displaySink) WriteTrial(t *benchmark.TrialResult) error {
	report.DisplayTrial(os.Stdout, t)
	return d.Sink.WriteTrial(t)
}

// failedTrials reports grid cells recorded as failed, so a scan that kept
// going past errors still exits non-zero.
func failedTrials(results []*benchmark.TrialResult, output string) error {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d trials failed; see the error column in %s", failed, len(results), output)
}

// serveMetrics starts the /metrics endpoint. The returned func shuts the
// server down and waits for it; calling it again is a no-op.
func serveMetrics(addr string, m *benchmark.Metrics, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown", zap.Error(err))
			}
			<-done
			logger.Info("metrics server stopped")
		})
	}, nil
}
