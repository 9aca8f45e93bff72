// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import "math"

// Seq is a monotonically increasing identifier naming which ring cell a
// task is acting on: cell index is Seq mod the ring's size. A 64-bit
// counter is assumed not to wrap during a process lifetime.
type Seq = uint64

// SeqMax is the sentinel meaning "this task has no slot currently
// claimed". It sorts after every real sequence number, so a plain
// numeric min() reduction over a stage's published sequences ignores it
// automatically unless every task is idle.
const SeqMax Seq = math.MaxUint64

// FenceKind distinguishes the two roles a Fence can play in a Pipeline.
type FenceKind uint8

const (
	// Producer fences write new data into the ring and must never
	// overwrite a cell still held by a downstream worker.
	Producer FenceKind = iota
	// Consumer fences read data published by an upstream fence and
	// must never read ahead of what has been published.
	Consumer
)

func (k FenceKind) String() string {
	switch k {
	case Producer:
		return "producer"
	case Consumer:
		return "consumer"
	default:
		return "unknown"
	}
}
