// Package rng wraps a seeded PCG source behind the draw primitives the
// generators need. A handle is always passed explicitly into generator
// calls; there is no package-level source. Sub-streams are derived
// deterministically from the master seed so generators are isolated from
// each other's draw counts, and so future parallel shards can derive their
// own streams without sharing mutable state.
package rng

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// RNG is a deterministic pseudo-random source.
type RNG struct {
	seed uint64
	src  *rand.Rand
}

// New returns a source seeded from seed.
func New(seed uint64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Derive returns an independent source whose seed is a pure function of this
// source's seed and label. Deriving does not consume draws from the parent.
func (r *RNG) Derive(label string) *RNG {
	h := fnv.New64a()
	h.Write([]byte(label))
	return New(r.seed ^ h.Sum64())
}

// Float64 returns a uniform draw in [0, 1).
func (r *RNG) Float64() float64 { return r.src.Float64() }

// IntN returns a uniform draw in [0, n).
func (r *RNG) IntN(n int) int { return r.src.IntN(n) }

// Uniform returns a uniform draw in [lo, hi).
func (r *RNG) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*r.src.Float64()
}

// Normal returns a Gaussian draw with the given mean and standard deviation.
func (r *RNG) Normal(mean, std float64) float64 {
	return mean + std*r.src.NormFloat64()
}

// ClippedNormal returns a Gaussian draw clipped to [lo, hi].
func (r *RNG) ClippedNormal(mean, std, lo, hi float64) float64 {
	return Clip(r.Normal(mean, std), lo, hi)
}

// Bool returns true with probability p.
func (r *RNG) Bool(p float64) bool { return r.src.Float64() < p }

// Skewed returns lo + (hi-lo) * u^exponent for uniform u. Exponents above 1
// concentrate mass near lo with a thin tail toward hi.
func (r *RNG) Skewed(lo, hi, exponent float64) float64 {
	return lo + (hi-lo)*math.Pow(r.src.Float64(), exponent)
}

// ChoiceInt returns a uniformly chosen element of xs.
func (r *RNG) ChoiceInt(xs []int) int { return xs[r.src.IntN(len(xs))] }

// ChoiceString returns a uniformly chosen element of xs.
func (r *RNG) ChoiceString(xs []string) string { return xs[r.src.IntN(len(xs))] }

// WeightedIndex returns an index drawn from the categorical distribution
// given by weights. Weights need not sum to 1; non-positive totals fall back
// to the last index.
func (r *RNG) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	u := r.src.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if u < cum {
			return i
		}
	}
	return len(weights) - 1
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
