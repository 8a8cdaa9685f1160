package binh

import (
	"encoding/binary"
	"math"

	"github.com/eunmann/rein/pkg/splitmix"
)

// minInt returns the smallest signed integer of the given width.
func minInt(size int) int64 {
	switch size {
	case 1:
		return math.MinInt8
	case 2:
		return math.MinInt16
	case 4:
		return math.MinInt32
	default:
		return math.MinInt64
	}
}

// storedInt returns element i of raw as a signed integer of the given width.
// raw is in host byte order.
func storedInt(raw []byte, i, size int) int64 {
	switch size {
	case 1:
		return int64(int8(raw[i]))
	case 2:
		return int64(int16(binary.NativeEndian.Uint16(raw[2*i:])))
	case 4:
		return int64(int32(binary.NativeEndian.Uint32(raw[4*i:])))
	default:
		return int64(binary.NativeEndian.Uint64(raw[8*i:]))
	}
}

// decodeInto decodes len(dst) elements of raw, stored with flag, into dst.
//
// Integer encodings store value - (key - MinIntN) in N bits; the sum wraps
// like int64. Quantized encodings store an integer q the same way and decode
// to delta*q + u*delta with u drawn from rng once per element; log encodings
// then return 10 to that power. Both products are rounded before the sum so
// the result does not depend on FMA support.
func decodeInto[T Number](dst []T, raw []byte, flag ColumnFlag, key int64, delta float64, rng *splitmix.Rand) {
	size := flag.Size()

	switch {
	case flag == Float64:
		for i := range dst {
			dst[i] = T(math.Float64frombits(binary.NativeEndian.Uint64(raw[8*i:])))
		}
	case flag == Float32:
		for i := range dst {
			dst[i] = T(math.Float32frombits(binary.NativeEndian.Uint32(raw[4*i:])))
		}
	case flag.IsInt():
		offset := key - minInt(size)
		for i := range dst {
			dst[i] = T(storedInt(raw, i, size) + offset)
		}
	case flag.IsQuantized():
		offset := key - minInt(size)
		log := flag.IsLog()
		for i := range dst {
			q := storedInt(raw, i, size) + offset
			v := float64(delta*float64(q)) + float64(rng.Float64()*delta)
			if log {
				v = math.Pow(10, v)
			}
			dst[i] = T(v)
		}
	}
}
