//go:build !linux && !windows

package benchmark

import "go.uber.org/zap"

// SetMaxResources is a no-op where no limits are adjusted.
func SetMaxResources(logger *zap.Logger) error {
	logger.Debug("system resources left unchanged")
	return nil
}
