package benchmark

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrShortRead        = errors.New("short read")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidWorkers   = errors.New("worker count must be >= 1")
)

// StorageWriteError is returned when the store rejects a write.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Key, e.Err) }
func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageReadError is returned when an object cannot be read back in full.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Key, e.Err) }
func (e *StorageReadError) Unwrap() error { return e.Err }

// StorageDeleteError is returned when cleanup cannot remove an object.
type StorageDeleteError struct {
	Key string
	Err error
}

func (e *StorageDeleteError) Error() string { return fmt.Sprintf("delete %s: %v", e.Key, e.Err) }
func (e *StorageDeleteError) Unwrap() error { return e.Err }

// PoolExecutionError wraps the first failure seen by a dispatcher. Index is the
// position of the failed operation, or -1 when the failure is not tied to one
// (e.g. a worker could not open its connection).
type PoolExecutionError struct {
	Phase   string
	Workers int
	Index   int
	Err     error
}

func (e *PoolExecutionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s phase (%d workers): %v", e.Phase, e.Workers, e.Err)
	}
	return fmt.Sprintf("%s phase (%d workers), op #%d: %v", e.Phase, e.Workers, e.Index, e.Err)
}

func (e *PoolExecutionError) Unwrap() error { return e.Err }
