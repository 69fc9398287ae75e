package domain

import "math/rand/v2"

// Rand is the jitter source for rainfall estimates. Estimates drawn from it are
// non-deterministic unless a seeded or fixed source is injected.
//
// *rand.Rand from math/rand/v2 satisfies Rand but is not safe for concurrent use;
// DefaultRand is.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand returns the process-wide random source.
func DefaultRand() Rand { return globalRand{} }

// FixedRand always returns its own value. Useful for pinning estimates.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }
