// Package random provides the seedable random source threaded through
// estimator configuration.
package random

import (
	"math/rand/v2"
	"sort"
)

// golden-ratio increment used to derive the PCG stream from the seed
const streamMix = 0x9e3779b97f4a7c15

// Source is a deterministic PCG generator. A Source is not safe for
// concurrent use; parallel work draws child sources with Split before
// fanning out.
type Source struct {
	pcg *rand.PCG
	r   *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed uint64) *Source {
	pcg := rand.NewPCG(seed, seed^streamMix)
	return &Source{pcg: pcg, r: rand.New(pcg)}
}

// Uint64 returns the next value of the stream.
func (s *Source) Uint64() uint64 {
	return s.r.Uint64()
}

// Split returns a child Source seeded from the next value of s.
func (s *Source) Split() *Source {
	return New(s.r.Uint64())
}

// Seeds draws n child seeds in order.
func (s *Source) Seeds(n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = s.r.Uint64()
	}
	return seeds
}

// Perm returns a uniform random permutation of [0, n).
func (s *Source) Perm(n int) []int {
	return s.r.Perm(n)
}

// Sample draws k distinct indices from [0, n) without replacement and
// returns them in ascending order. k is clamped to [0, n].
func (s *Source) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + s.r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := idx[:k:k]
	sort.Ints(out)
	return out
}

// MarshalBinary captures the generator state.
func (s *Source) MarshalBinary() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// UnmarshalBinary restores state captured by MarshalBinary.
func (s *Source) UnmarshalBinary(data []byte) error {
	if s.pcg == nil {
		s.pcg = rand.NewPCG(0, 0)
		s.r = rand.New(s.pcg)
	}
	return s.pcg.UnmarshalBinary(data)
}
