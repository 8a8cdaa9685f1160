// Package splitmix implements the splitmix64 generator used to reproduce
// dequantization noise across binh readers.
//
// The constants and operation order match Sebastiano Vigna's reference
// splitmix64.c, so any reader that seeds from the same file header draws the
// same sequence.
package splitmix

import "math"

const (
	gamma = 0x9e3779b97f4a7c15
	mix1  = 0xbf58476d1ce4e5b9
	mix2  = 0x94d049bb133111eb
)

// belowOne is the largest float64 strictly less than 1.
var belowOne = math.Nextafter(1, 0)

// Rand is a splitmix64 generator. The zero value is a generator seeded with 0.
//
// Rand is not safe for concurrent use. Give each goroutine its own Rand, or a
// Clone when draws must stay in lockstep.
type Rand struct {
	state uint64
}

// New returns a generator seeded with seed.
func New(seed uint64) *Rand {
	return &Rand{state: seed}
}

// Seed resets the generator state.
func (r *Rand) Seed(seed uint64) {
	r.state = seed
}

// State returns the current internal state.
func (r *Rand) State() uint64 {
	return r.state
}

// Clone returns an independent generator with the same state.
func (r *Rand) Clone() *Rand {
	return &Rand{state: r.state}
}

// Uint64 returns the next 64-bit draw.
func (r *Rand) Uint64() uint64 {
	r.state += gamma
	z := r.state
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Float64 returns a uniform draw in [0, 1).
//
// The draw is divided by MaxUint64 as in the reference implementation. Draws
// within 2^10 of MaxUint64 round to exactly 1.0 in float64; those are clamped
// to the largest float64 below 1.
func (r *Rand) Float64() float64 {
	f := float64(r.Uint64()) / float64(math.MaxUint64)
	if f >= 1 {
		return belowOne
	}
	return f
}

// Float32 returns Float64 narrowed to float32.
func (r *Rand) Float32() float32 {
	return float32(r.Float64())
}
