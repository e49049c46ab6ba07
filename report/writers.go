package report

import (
	"bufio"
	"encoding/csv"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"storebench/benchmark"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CSVWriter writes one CSV record per row. The header is written lazily so a
// file holds either trial rows or format rows, never both.
type CSVWriter struct {
	w      *csv.Writer
	header []string
}

// NewCSVWriter returns a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) write(header, record []string) error {
	if c.header == nil {
		c.header = header
		if err := c.w.Write(header); err != nil {
			return errors.Wrap(err, "failed to write CSV header")
		}
	} else if len(c.header) != len(header) || c.header[0] != header[0] {
		return errors.New("CSV writer: mixed row kinds in one file")
	}
	if err := c.w.Write(record); err != nil {
		return errors.Wrap(err, "failed to write CSV row")
	}
	c.w.Flush()
	return errors.Wrap(c.w.Error(), "failed to flush CSV row")
}

// WriteTrial appends one grid scan row.
func (c *CSVWriter) WriteTrial(t *benchmark.TrialResult) error {
	row := NewTrialRow(t)
	return c.write(TrialColumns, row.record())
}

// WriteFormat appends one format scan row.
func (c *CSVWriter) WriteFormat(f *benchmark.FormatResult) error {
	row := NewFormatRow(f)
	return c.write(FormatColumns, row.record())
}

// Close flushes any buffered data.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	bw  *bufio.Writer
	enc *jsoniter.Encoder
}

// NewJSONWriter returns a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriter(w)
	return &JSONWriter{bw: bw, enc: json.NewEncoder(bw)}
}

func (j *JSONWriter) write(v any) error {
	if err := j.enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode row")
	}
	return errors.Wrap(j.bw.Flush(), "failed to flush row")
}

// WriteTrial appends one grid scan row.
func (j *JSONWriter) WriteTrial(t *benchmark.TrialResult) error { return j.write(NewTrialRow(t)) }

// WriteFormat appends one format scan row.
func (j *JSONWriter) WriteFormat(f *benchmark.FormatResult) error { return j.write(NewFormatRow(f)) }

// Close flushes any buffered data.
func (j *JSONWriter) Close() error { return j.bw.Flush() }
