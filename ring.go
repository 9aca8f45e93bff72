// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import "errors"

// ErrSizeNotPowerOfTwo is returned by NewRing when size is not a power
// of two, which is required for the index-by-mask arithmetic below.
var ErrSizeNotPowerOfTwo = errors.New("ringfence: size must be a power of two")

// Ring is a fixed-size circular array of Slot cells. It holds no
// ownership of sequence numbers and performs no synchronisation of its
// own — it is addressed by sequence number, and safety of concurrent
// access across goroutines is entirely the Fence's responsibility.
//
// Separating addressing from synchronisation keeps the hot path a
// single bitwise AND and leaves memory ordering visible and auditable
// in Fence, rather than buried in the container.
type Ring[Slot any] struct {
	cells []Slot
	mask  uint64
}

// NewRing constructs a Ring with exactly size cells, default-initialised.
// size must be a power of two; otherwise NewRing returns
// ErrSizeNotPowerOfTwo.
func NewRing[Slot any](size uint64) (*Ring[Slot], error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, ErrSizeNotPowerOfTwo
	}
	return &Ring[Slot]{
		cells: make([]Slot, size),
		mask:  size - 1,
	}, nil
}

// Size returns the fixed number of cells in the ring.
func (r *Ring[Slot]) Size() uint64 {
	return uint64(len(r.cells))
}

// Index returns the cell index seq maps to: seq & (size-1).
func (r *Ring[Slot]) Index(seq Seq) uint64 {
	return seq & r.mask
}

// At returns a pointer to the cell seq maps to. The protocol
// implemented by Fence, not the type system, guarantees that at most
// one goroutine holds this pointer at any given time; callers outside
// that protocol must not call At.
func (r *Ring[Slot]) At(seq Seq) *Slot {
	return &r.cells[r.Index(seq)]
}
