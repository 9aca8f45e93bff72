// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bloom implements a space-efficient probabilistic set over
// opaque byte keys, parameterised by a target capacity and false
// positive rate and using Kirsch-Mitzenmacher double hashing to derive
// its K bit indices from a single 128-bit hash per key.
package bloom

import (
	"errors"
	"math"

	"github.com/spaolacci/murmur3"
)

// seed is a fixed 32-bit constant derived from e x 10^9, matching the
// original design's choice of an arbitrary but deterministic seed so
// that two filters built with identical parameters over identical
// inputs are bit-identical. math.E*1e9 is not an exact integer, so the
// truncating conversion to uint32 must happen at init time (a var), not
// as a constant expression.
var seed = uint32(math.E * 1e9)

// ErrZeroCapacity is returned by New when n is zero.
var ErrZeroCapacity = errors.New("bloom: capacity must be greater than zero")

// ErrInvalidProbability is returned by New when p is outside (0, 1).
var ErrInvalidProbability = errors.New("bloom: false positive rate must be in (0, 1)")

// Filter is a Bloom filter over byte-slice keys. The zero value is not
// usable; construct one with New.
type Filter struct {
	bits      []byte
	numHashes uint64
	numBits   uint64
}

// New constructs a Filter sized for n keys at a target false positive
// rate p. The bit count M and hash count K are computed per the
// standard Bloom filter formulas:
//
//	M = ceil(-n*ln(p) / ln(2)^2 / 8) * 8
//	K = ceil(ln(2) * M / n)
func New(n uint64, p float64) (*Filter, error) {
	if n == 0 {
		return nil, ErrZeroCapacity
	}
	if p <= 0 || p >= 1 {
		return nil, ErrInvalidProbability
	}

	ln2 := math.Log(2)
	totalBits := math.Ceil(-float64(n) * math.Log(p) / (ln2 * ln2))
	totalBits = math.Ceil(totalBits/8) * 8
	numHashes := math.Ceil(ln2 * totalBits / float64(n))

	m := uint64(totalBits)
	return &Filter{
		bits:      make([]byte, m/8),
		numHashes: uint64(numHashes),
		numBits:   m,
	}, nil
}

// NumBits reports M, the size of the underlying bit array.
func (f *Filter) NumBits() uint64 { return f.numBits }

// NumHashes reports K, the number of bit indices derived per key.
func (f *Filter) NumHashes() uint64 { return f.numHashes }

// indexes derives the K bit positions for key via Kirsch-Mitzenmacher
// double hashing: idx_i = (h0 + i*h1) mod M, from a single 128-bit hash
// of key. The scratch slice is local to the call, not a shared field,
// so concurrent Member calls are safe — the original source's single
// shared scratch buffer made its equivalent of Member non-thread-safe.
// Insert writes the bit array without synchronisation and must not run
// concurrently with any other call on the same Filter.
func (f *Filter) indexes(key []byte) []uint64 {
	h0, h1 := murmur3.Sum128WithSeed(key, seed)
	idx := make([]uint64, f.numHashes)
	for i := uint64(0); i < f.numHashes; i++ {
		idx[i] = (h0 + i*h1) % f.numBits
	}
	return idx
}

// Insert adds key to the set.
func (f *Filter) Insert(key []byte) {
	for _, idx := range f.indexes(key) {
		f.setBit(idx)
	}
}

// Member reports whether key may have been inserted. False positives
// are possible at approximately the rate New was configured for; false
// negatives are not.
func (f *Filter) Member(key []byte) bool {
	for _, idx := range f.indexes(key) {
		if !f.getBit(idx) {
			return false
		}
	}
	return true
}

// Clear zeros the bit array. After Clear, Member returns false for
// every previously inserted key (outside the degenerate zero-hash
// configuration, which New's validation precludes).
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}

// Count returns the population count of set bits, via Brian Kernighan's
// algorithm.
func (f *Filter) Count() uint64 {
	var count uint64
	for _, b := range f.bits {
		for b != 0 {
			b &= b - 1
			count++
		}
	}
	return count
}

func (f *Filter) setBit(n uint64) {
	f.bits[n/8] |= 1 << (n % 8)
}

func (f *Filter) getBit(n uint64) bool {
	return f.bits[n/8]&(1<<(n%8)) != 0
}
