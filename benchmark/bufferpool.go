package benchmark

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/pkg/errors"
)

// bufPool reuses payload buffers across write operations
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// GetBuffer gets a buffer of exactly size bytes from the pool
func GetBuffer(size int) []byte {
	bp := bufPool.Get().(*[]byte)
	if cap(*bp) < size {
		return make([]byte, size)
	}
	return (*bp)[:size]
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf []byte) {
	bufPool.Put(&buf)
}

var float32Fill = math.Float32bits(42.0)

// FillPayload overwrites buf with content of the given kind.
func FillPayload(buf []byte, kind PayloadKind) error {
	switch kind {
	case PayloadFloat32:
		i := 0
		for ; i+4 <= len(buf); i += 4 {
			binary.LittleEndian.PutUint32(buf[i:], float32Fill)
		}
		clear(buf[i:])
		return nil
	case PayloadRandom, "":
		var seed [32]byte
		if _, err := crand.Read(seed[:]); err != nil {
			return errors.Wrap(err, "failed to seed payload generator")
		}
		_, err := rand.NewChaCha8(seed).Read(buf)
		return err
	default:
		return errors.Errorf("unknown payload %q", kind)
	}
}
