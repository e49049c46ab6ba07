package benchmark

import (
	"time"

	"github.com/pkg/errors"
)

// PayloadKind selects how write payloads are generated.
type PayloadKind string

const (
	PayloadRandom  PayloadKind = "random"
	PayloadFloat32 PayloadKind = "float32" // 42.0 repeated, little endian
)

// ParsePayload validates a payload name; the empty string means random.
func ParsePayload(s string) (PayloadKind, error) {
	switch k := PayloadKind(s); k {
	case "":
		return PayloadRandom, nil
	case PayloadRandom, PayloadFloat32:
		return k, nil
	default:
		return "", errors.Errorf("unknown payload %q (expected random or float32)", s)
	}
}

// ErrorPolicy decides what a grid scan does when one trial fails.
type ErrorPolicy string

const (
	ErrorPolicyContinue ErrorPolicy = "continue" // record the failed cell and move on
	ErrorPolicyAbort    ErrorPolicy = "abort"
)

// ParseErrorPolicy validates a policy name; the empty string means continue.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case "":
		return ErrorPolicyContinue, nil
	case ErrorPolicyContinue, ErrorPolicyAbort:
		return p, nil
	default:
		return "", errors.Errorf("unknown error policy %q (expected continue or abort)", s)
	}
}

// TrialConfig holds the parameters of one write-then-read trial.
type TrialConfig struct {
	Samples    int           // number of objects written and read back
	Workers    int           // worker-pool size for both phases
	FileSize   int64         // size of each object in bytes
	Prefix     string        // object keys are <Prefix>_<index>.bin
	Quiescence time.Duration // pause between the write and read phases
	Payload    PayloadKind
	Verify     bool // compare read checksums against written ones
	Cleanup    bool // delete the objects after the trial
}

// GridConfig holds the parameters of a scan over worker-pool sizes.
type GridConfig struct {
	Samples    int
	FileSize   int64
	Workers    []int // scanned in order
	Prefix     string
	Quiescence time.Duration
	Payload    PayloadKind
	Verify     bool
	Cleanup    bool
	OnError    ErrorPolicy
}

func (c *GridConfig) trial(workers int) TrialConfig {
	return TrialConfig{
		Samples:    c.Samples,
		Workers:    workers,
		FileSize:   c.FileSize,
		Prefix:     TrialPrefix(c.Prefix, workers),
		Quiescence: c.Quiescence,
		Payload:    c.Payload,
		Verify:     c.Verify,
		Cleanup:    c.Cleanup,
	}
}
