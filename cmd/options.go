package main

import (
	"flag"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"storebench/benchmark"
	"storebench/config"
	"storebench/report"
	"storebench/store"
)

// options holds everything the command line (and an optional profile) decides.
type options struct {
	operation   string
	backend     store.Kind
	samples     int
	fileSize    int64
	workers     []int
	prefix      string
	quiescence  time.Duration
	opTimeout   time.Duration
	rateLimit   int
	payload     benchmark.PayloadKind
	verify      bool
	cleanup     bool
	onError     benchmark.ErrorPolicy
	format      report.Format
	keys        []string
	modes       []benchmark.FormatMode
	iterations  int
	headerBytes int64
	metricsAddr string
	logLevel    string
	quiet       bool
	insecure    bool
	ociHost     string
	ociNS       string

	configFile string
	bucket     string
	output     string
}

func parseWorkers(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		w, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid worker count %q", f)
		}
		if w < 1 {
			return nil, errors.Wrapf(benchmark.ErrInvalidWorkers, "got %d", w)
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one worker count is required")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseOptions parses args (without the program name). Values from -profile
// apply to every flag not given explicitly.
func parseOptions(args []string) (*options, error) {
	fs := flag.NewFlagSet("storebench", flag.ContinueOnError)
	var (
		operation   = fs.String("operation", "GRID", "Operation to perform: GRID, TRIAL, PUT, GET, DELETE, FORMATS")
		backend     = fs.String("backend", "s3", "Object store backend: s3, oci, fs, mem")
		samples     = fs.Int("samples", 100, "Number of objects written and read per trial")
		size        = fs.Int64("size", 1024*1024, "Size of each object in bytes")
		workers     = fs.String("workers", "1,2,4,8,16,32", "Comma-separated worker-pool sizes to scan")
		prefix      = fs.String("prefix", "", "Object key prefix (random when empty)")
		quiescence  = fs.Duration("quiescence", 0, "Pause between the write and read phase")
		opTimeout   = fs.Duration("op-timeout", 0, "Deadline for a single operation (0 means none)")
		rateLimit   = fs.Int("rate-limit", 0, "Max requests per second (0 means no limit)")
		payload     = fs.String("payload", "random", "Write payload: random or float32")
		verify      = fs.Bool("verify", false, "Verify read checksums against written ones")
		cleanup     = fs.Bool("cleanup", false, "Delete the benchmark objects after each trial")
		onError     = fs.String("on-error", "continue", "Grid scan policy on a failed trial: continue or abort")
		format      = fs.String("format", "csv", "Result file format: csv or json")
		profile     = fs.String("profile", "", "YAML scan profile")
		keys        = fs.String("keys", "", "Comma-separated object keys for FORMATS")
		modes       = fs.String("modes", "open,load", "Comma-separated FORMATS modes: open, load, ref")
		iterations  = fs.Int("iterations", 1, "Iterations over the keys for FORMATS")
		headerBytes = fs.Int64("header-bytes", benchmark.DefaultHeaderBytes, "Bytes fetched by an open in FORMATS")
		metricsAddr = fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
		logLevel    = fs.String("log-level", "info", "Log file level: debug, info, warn, error")
		quiet       = fs.Bool("quiet", false, "Disable progress bars")
		insecure    = fs.Bool("insecure", false, "Skip TLS certificate verification")
		ociHost     = fs.String("oci-host", "", "OCI Object Storage host override")
		ociNS       = fs.String("oci-namespace", "", "OCI namespace (fetched when empty)")
	)
	fs.Usage = func() {
		fs.Output().Write([]byte("usage: storebench [flags] config_file bucket_name [output_file]\n"))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if *profile != "" {
		p, err := config.LoadProfile(*profile)
		if err != nil {
			return nil, err
		}
		applyProfile(p, set, samples, size, workers, prefix, quiescence, opTimeout, rateLimit, payload, verify, cleanup, onError, format)
	}

	o := &options{
		operation:   strings.ToUpper(*operation),
		samples:     *samples,
		fileSize:    *size,
		prefix:      *prefix,
		quiescence:  *quiescence,
		opTimeout:   *opTimeout,
		rateLimit:   *rateLimit,
		verify:      *verify,
		cleanup:     *cleanup,
		keys:        splitList(*keys),
		iterations:  *iterations,
		headerBytes: *headerBytes,
		metricsAddr: *metricsAddr,
		logLevel:    *logLevel,
		quiet:       *quiet,
		insecure:    *insecure,
		ociHost:     *ociHost,
		ociNS:       *ociNS,
	}
	var err error
	if o.backend, err = store.ParseKind(*backend); err != nil {
		return nil, err
	}
	if o.workers, err = parseWorkers(*workers); err != nil {
		return nil, err
	}
	if o.payload, err = benchmark.ParsePayload(*payload); err != nil {
		return nil, err
	}
	if o.onError, err = benchmark.ParseErrorPolicy(*onError); err != nil {
		return nil, err
	}
	if o.format, err = report.ParseFormat(*format); err != nil {
		return nil, err
	}
	if o.modes, err = benchmark.ParseFormatModes(*modes); err != nil {
		return nil, err
	}
	if o.samples < 0 || o.fileSize < 0 {
		return nil, errors.Errorf("samples (%d) and size (%d) must be non-negative", o.samples, o.fileSize)
	}

	pos := fs.Args()
	if len(pos) < 2 || len(pos) > 3 {
		fs.Usage()
		return nil, errors.New("expected config_file bucket_name [output_file]")
	}
	o.configFile, o.bucket = pos[0], pos[1]
	if len(pos) == 3 {
		o.output = pos[2]
	}

	switch o.operation {
	case "GRID", "FORMATS":
		if o.output == "" {
			return nil, errors.Errorf("%s requires an output_file", o.operation)
		}
		if o.operation == "FORMATS" && len(o.keys) == 0 {
			return nil, errors.New("FORMATS requires -keys")
		}
	case "TRIAL", "PUT":
	case "GET", "DELETE":
		if o.prefix == "" {
			return nil, errors.Errorf("%s requires the -prefix used when writing", o.operation)
		}
	default:
		return nil, errors.Errorf("unknown operation %q", *operation)
	}
	return o, nil
}

func applyProfile(p *config.Profile, set map[string]bool,
	samples *int, size *int64, workers, prefix *string, quiescence, opTimeout *time.Duration,
	rateLimit *int, payload *string, verify, cleanup *bool, onError, format *string,
) {
	if p.Samples > 0 && !set["samples"] {
		*samples = p.Samples
	}
	if p.FileSize > 0 && !set["size"] {
		*size = p.FileSize
	}
	if len(p.Workers) > 0 && !set["workers"] {
		ws := make([]string, len(p.Workers))
		for i, w := range p.Workers {
			ws[i] = strconv.Itoa(w)
		}
		*workers = strings.Join(ws, ",")
	}
	if p.Prefix != "" && !set["prefix"] {
		*prefix = p.Prefix
	}
	if p.Quiescence > 0 && !set["quiescence"] {
		*quiescence = p.Quiescence
	}
	if p.OpTimeout > 0 && !set["op-timeout"] {
		*opTimeout = p.OpTimeout
	}
	if p.RateLimit > 0 && !set["rate-limit"] {
		*rateLimit = p.RateLimit
	}
	if p.Payload != "" && !set["payload"] {
		*payload = p.Payload
	}
	if p.Verify && !set["verify"] {
		*verify = true
	}
	if p.Cleanup && !set["cleanup"] {
		*cleanup = true
	}
	if p.OnError != "" && !set["on-error"] {
		*onError = p.OnError
	}
	if p.Format != "" && !set["format"] {
		*format = p.Format
	}
}
