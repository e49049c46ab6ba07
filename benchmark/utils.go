package benchmark

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Operation identifies one object to write or read. Size is the payload size for
// writes and the expected size for reads (0 means unknown).
type Operation struct {
	Key  string
	Size int64
}

// ObjectName returns the key of the index-th object under prefix.
func ObjectName(prefix string, index int) string {
	return fmt.Sprintf("%s_%d.bin", prefix, index)
}

// TrialPrefix derives a per-trial prefix so trials in one scan never share keys.
func TrialPrefix(prefix string, workers int) string {
	return fmt.Sprintf("%s-w%d", prefix, workers)
}

// BuildOperations returns n operations <prefix>_0.bin .. <prefix>_<n-1>.bin.
func BuildOperations(prefix string, n int, size int64) []Operation {
	ops := make([]Operation, n)
	for i := range ops {
		ops[i] = Operation{Key: ObjectName(prefix, i), Size: size}
	}
	return ops
}

// Reversed returns a reversed copy of ops.
func Reversed(ops []Operation) []Operation {
	out := slices.Clone(ops)
	slices.Reverse(out)
	return out
}

// GenerateRandomName creates a random hex string for object prefixes
func GenerateRandomName(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate random name")
	}
	return hex.EncodeToString(b), nil
}

// CheckLogForThrottling scans the log file for "429 TooManyRequests" errors
func CheckLogForThrottling(logFileName string) (bool, error) {
	file, err := os.Open(logFileName)
	if err != nil {
		return false, errors.Wrap(err, "failed to open log file")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "429") && strings.Contains(line, "TooManyRequests") {
			return true, nil
		}
	}
	return false, errors.Wrap(scanner.Err(), "failed to read log file")
}
