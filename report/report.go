package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"storebench/benchmark"
)

// Format selects the encoding of the result file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json" // one object per line
)

// ParseFormat validates a format name; the empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", errors.Errorf("unknown format %q (expected csv or json)", s)
	}
}

// TrialColumns is the header of the grid scan report.
var TrialColumns = []string{
	"total_write_time", "avg_write_time", "write_throughput",
	"total_read_time", "avg_read_time", "read_throughput",
	"workers", "samples", "file_size",
	"write_p50", "write_p99", "read_p50", "read_p99",
	"error",
}

// FormatColumns is the header of the format scan report.
var FormatColumns = []string{
	"iteration", "key", "file_type", "mode", "duration", "bytes", "throughput",
}

// TrialRow is the flattened, serializable form of a trial.
type TrialRow struct {
	TotalWriteTime  float64 `json:"total_write_time"`
	AvgWriteTime    float64 `json:"avg_write_time"`
	WriteThroughput float64 `json:"write_throughput"`
	TotalReadTime   float64 `json:"total_read_time"`
	AvgReadTime     float64 `json:"avg_read_time"`
	ReadThroughput  float64 `json:"read_throughput"`
	Workers         int     `json:"workers"`
	Samples         int     `json:"samples"`
	FileSize        int64   `json:"file_size"`
	WriteP50        float64 `json:"write_p50"`
	WriteP99        float64 `json:"write_p99"`
	ReadP50         float64 `json:"read_p50"`
	ReadP99         float64 `json:"read_p99"`
	Error           string  `json:"error,omitempty"`
}

// NewTrialRow flattens a trial; times are in seconds, throughput in bytes/s.
func NewTrialRow(t *benchmark.TrialResult) TrialRow {
	row := TrialRow{Workers: t.Workers, Samples: t.Samples, FileSize: t.FileSize}
	if t.Err != nil {
		row.Error = t.Err.Error()
	}
	if w := t.Write; w != nil {
		st := w.Stats()
		row.TotalWriteTime = w.Total.Seconds()
		row.AvgWriteTime = w.Mean().Seconds()
		row.WriteThroughput = w.Throughput()
		row.WriteP50, row.WriteP99 = st.P50.Seconds(), st.P99.Seconds()
	}
	if r := t.Read; r != nil {
		st := r.Stats()
		row.TotalReadTime = r.Total.Seconds()
		row.AvgReadTime = r.Mean().Seconds()
		row.ReadThroughput = r.Throughput()
		row.ReadP50, row.ReadP99 = st.P50.Seconds(), st.P99.Seconds()
	}
	return row
}

func (r *TrialRow) record() []string {
	return []string{
		ftoa(r.TotalWriteTime), ftoa(r.AvgWriteTime), ftoa(r.WriteThroughput),
		ftoa(r.TotalReadTime), ftoa(r.AvgReadTime), ftoa(r.ReadThroughput),
		strconv.Itoa(r.Workers), strconv.Itoa(r.Samples), strconv.FormatInt(r.FileSize, 10),
		ftoa(r.WriteP50), ftoa(r.WriteP99), ftoa(r.ReadP50), ftoa(r.ReadP99),
		r.Error,
	}
}

// FormatRow is the flattened form of one format scan access.
type FormatRow struct {
	Iteration  int     `json:"iteration"`
	Key        string  `json:"key"`
	FileType   string  `json:"file_type"`
	Mode       string  `json:"mode"`
	Duration   float64 `json:"duration"`
	Bytes      int64   `json:"bytes"`
	Throughput float64 `json:"throughput"`
}

// NewFormatRow flattens a format scan access.
func NewFormatRow(f *benchmark.FormatResult) FormatRow {
	return FormatRow{
		Iteration:  f.Iteration,
		Key:        f.Key,
		FileType:   f.FileType,
		Mode:       string(f.Mode),
		Duration:   f.Duration.Seconds(),
		Bytes:      f.Bytes,
		Throughput: f.Throughput(),
	}
}

func (r *FormatRow) record() []string {
	return []string{
		strconv.Itoa(r.Iteration), r.Key, r.FileType, r.Mode,
		ftoa(r.Duration), strconv.FormatInt(r.Bytes, 10), ftoa(r.Throughput),
	}
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Writer streams result rows; every row is flushed before the call returns.
type Writer interface {
	benchmark.Sink
	benchmark.FormatSink
	Close() error
}

// New returns a Writer of the given format on w.
func New(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, errors.Errorf("unknown format %q", format)
	}
}

type fileWriter struct {
	Writer
	f *os.File
}

func (fw *fileWriter) Close() error {
	err := fw.Writer.Close()
	if erc := fw.f.Close(); err == nil {
		err = erc
	}
	return err
}

// Create creates (or truncates) path and returns a Writer on it.
func Create(path string, format Format) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create result file")
	}
	w, err := New(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileWriter{Writer: w, f: f}, nil
}

// DisplayTrial shows the summary of one trial's performance
func DisplayTrial(out io.Writer, t *benchmark.TrialResult) {
	header := color.New(color.FgCyan, color.Bold).SprintfFunc()
	good := color.New(color.FgGreen).SprintfFunc()
	bad := color.New(color.FgRed, color.Bold).SprintfFunc()

	fmt.Fprintln(out, header("Trial: %d workers, %d objects of %d bytes", t.Workers, t.Samples, t.FileSize))
	if t.Err != nil {
		fmt.Fprintln(out, bad("  FAILED: %v", t.Err))
		return
	}
	for _, p := range []*benchmark.PhaseResult{t.Write, t.Read} {
		if p == nil {
			continue
		}
		st := p.Stats()
		fmt.Fprintf(out, "  %-5s total %-12s avg %-12s p99 %-12s %s %s\n",
			p.Op, p.Total.Round(time.Microsecond), p.Mean().Round(time.Microsecond), st.P99.Round(time.Microsecond),
			good("%.2f MiB/s", p.Throughput()/(1024*1024)),
			fmt.Sprintf("%.2f objects/s", objectRate(p)))
	}
}

// DisplayPhase shows the summary of a single phase
func DisplayPhase(out io.Writer, p *benchmark.PhaseResult) {
	fmt.Fprintf(out, "%s Results:\n", p.Op)
	fmt.Fprintf(out, "Duration: %s\n", p.Total)
	fmt.Fprintf(out, "Total Objects Processed: %d\n", p.Count())
	fmt.Fprintf(out, "Data Throughput: %.2f MiB/s\n", p.Throughput()/(1024*1024))
	fmt.Fprintf(out, "Object Throughput: %.2f objects/s\n", objectRate(p))
}

func objectRate(p *benchmark.PhaseResult) float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Count()) / p.Total.Seconds()
}
