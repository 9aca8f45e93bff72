// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// This file tests the protocol invariants directly (properties 6-8 of
// the design: exactly-once ordered processing, no premature read, no
// wrap-around overwrite) with a single producer and single consumer,
// where every sequence number and ring index can be derived from the
// value the producer itself writes.
const spscRingSize = 4

func TestFence_NoDuplicateOrPrematureOrOverwriteVisits(t *testing.T) {
	defer goleak.VerifyNone(t)

	ring, err := NewRing[int64](spscRingSize)
	require.NoError(t, err)

	producerFence := NewAtomicFence[int64](Producer, ring, WithSpinRetries[int64](4), WithSleep[int64](time.Millisecond))
	consumerFence := NewAtomicFence[int64](Consumer, ring, WithSpinRetries[int64](4), WithSleep[int64](time.Millisecond))

	p := NewPipeline(ring)
	p.AddProducer(producerFence)
	p.AddConsumer(consumerFence)

	errs := &errorCollector{}
	var producerSeq atomic.Int64
	var consumedSeq [spscRingSize]atomic.Int64
	for i := range consumedSeq {
		consumedSeq[i].Store(-1)
	}
	var lastConsumed atomic.Int64
	lastConsumed.Store(-1)
	var consumedCount atomic.Int64

	p.AddTask(producerFence, func(slot *int64) error {
		seq := producerSeq.Add(1) - 1
		idx := seq % spscRingSize
		if seq >= spscRingSize {
			prevSeq := seq - spscRingSize
			if got := consumedSeq[idx].Load(); got != prevSeq {
				// property 8: no producer overwrite of a slot not yet
				// fully processed downstream.
				errs.add("producer: overwrote ring index %d holding seq %d before it was consumed (consumed=%d)", idx, prevSeq, got)
			}
		}
		*slot = seq
		return nil
	})

	p.AddTask(consumerFence, func(slot *int64) error {
		seq := *slot
		idx := seq % spscRingSize
		want := lastConsumed.Load() + 1
		if seq != want {
			// properties 6+7: exactly once, strictly in order, never
			// reading ahead of what the producer published.
			errs.add("consumer: processed seq %d, want %d", seq, want)
		}
		lastConsumed.Store(seq)
		consumedSeq[idx].Store(seq)
		consumedCount.Add(1)
		return nil
	})

	require.NoError(t, p.Wire())
	p.Start()

	deadline := time.Now().Add(5 * time.Second)
	for consumedCount.Load() < 500 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	p.Stop()

	require.GreaterOrEqual(t, consumedCount.Load(), int64(500), "consumer did not make progress")
	errs.assertClean(t)
}

func TestFence_AcquireReturnsErrCancelledWhenStoppedWhileWaiting(t *testing.T) {
	ring, err := NewRing[int64](2)
	require.NoError(t, err)

	// A consumer fence with no upstream producer activity never becomes
	// safe to claim, so Acquire spins and then sleeps indefinitely.
	// Stopping the task must unblock it with ErrCancelled rather than
	// hanging.
	producerFence := NewAtomicFence[int64](Producer, ring, WithSpinRetries[int64](1), WithSleep[int64](time.Millisecond))
	consumerFence := NewAtomicFence[int64](Consumer, ring, WithSpinRetries[int64](1), WithSleep[int64](time.Millisecond))
	producerFence.SetNextFence(consumerFence)
	consumerFence.SetNextFence(producerFence)

	task := NewTask[int64](consumerFence, func(*int64) error { return nil })
	consumerFence.AddTask(task)

	acquireErr := make(chan error, 1)
	go func() {
		_, err := consumerFence.Acquire(task)
		acquireErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	close(task.cancel)

	select {
	case err := <-acquireErr:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestAtomicFence_MinPublished_IgnoresIdleTasks(t *testing.T) {
	ring, err := NewRing[int64](8)
	require.NoError(t, err)
	fence := NewAtomicFence[int64](Consumer, ring)

	idle := NewTask[int64](fence, func(*int64) error { return nil })
	active := NewTask[int64](fence, func(*int64) error { return nil })
	fence.AddTask(idle)
	fence.AddTask(active)

	if got := fence.MinPublished(); got != SeqMax {
		t.Fatalf("MinPublished() with all tasks idle = %d, want SeqMax", got)
	}

	active.currentSeq.Store(5)
	if got := fence.MinPublished(); got != 5 {
		t.Fatalf("MinPublished() = %d, want 5", got)
	}

	idle.currentSeq.Store(2)
	if got := fence.MinPublished(); got != 2 {
		t.Fatalf("MinPublished() = %d, want 2", got)
	}
}
