//go:build windows

package benchmark

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// SetMaxResources adjusts system resource limits on Windows systems.
func SetMaxResources(logger *zap.Logger) error {
	// Only the Go runtime's max threads can be set on Windows; there is no
	// equivalent of the open file limit.
	const maxThreads = 8000
	debug.SetMaxThreads(maxThreads)

	logger.Info("system resources adjusted", zap.Int("max_threads", maxThreads))
	return nil
}
