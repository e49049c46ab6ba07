//go:build linux

package benchmark

import (
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SetMaxResources raises the open file limit to its hard maximum and lets the Go
// runtime use up to 90% of the kernel's thread limit.
func SetMaxResources(logger *zap.Logger) error {
	const threadLimit = 10000
	var rLimit unix.Rlimit

	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return errors.Wrap(err, "unable to get rlimit")
	}
	before := rLimit.Cur
	rLimit.Cur = rLimit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return errors.Wrap(err, "unable to set open file limit")
	}

	threads, err := readLinuxMaxThreads()
	if err != nil {
		return err
	}
	maxThreads := (int(threads) * 90) / 100
	if maxThreads > threadLimit {
		debug.SetMaxThreads(maxThreads)
	}

	logger.Info("system resources adjusted",
		zap.Uint64("nofile_before", before),
		zap.Uint64("nofile", rLimit.Cur),
		zap.Int("max_threads", max(maxThreads, threadLimit)))
	return nil
}

// readLinuxMaxThreads reads the max threads from /proc/sys/kernel/threads-max on Linux.
func readLinuxMaxThreads() (uint32, error) {
	data, err := os.ReadFile("/proc/sys/kernel/threads-max")
	if err != nil {
		return 0, errors.Wrap(err, "unable to read max threads")
	}
	threads, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "unable to parse max threads value")
	}
	return uint32(threads), nil
}
