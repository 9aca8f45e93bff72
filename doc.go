// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ringfence provides a lock-free, pipelined ring-buffer
// coordination engine in the style of the LMAX Disruptor.
//
// # Thread-Safety Guarantees
//
// A Ring's cells are shared by every Task in the pipeline; arbitration
// is by sequence number alone, enforced by the claim/publish protocol
// implemented in Fence. No lock is taken anywhere in the hot path.
//
// # Topology
//
// A Pipeline wires a single producer Fence to a chain of consumer
// Fences closing back on itself: producer -> consumer[0] -> consumer[1]
// -> ... -> consumer[k-1] -> producer. Each Fence may have more than one
// Task bound to it, in which case those Tasks share the Fence's claim
// counter and race only on a single atomic compare-and-swap.
//
// # Usage Example
//
//	ring, _ := ringfence.NewRing[int64](8)
//	producer := ringfence.NewAtomicFence[int64](ringfence.Producer, ring)
//	consumer := ringfence.NewAtomicFence[int64](ringfence.Consumer, ring)
//
//	p := ringfence.NewPipeline(ring)
//	p.AddProducer(producer)
//	p.AddConsumer(consumer)
//	p.AddTask(producer, func(slot *int64) error { *slot++; return nil })
//	p.AddTask(consumer, func(slot *int64) error { return nil })
//
//	if err := p.Wire(); err != nil {
//	    log.Fatal(err)
//	}
//	p.Start()
//	defer p.Stop()
package ringfence
