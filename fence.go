// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// fenceCacheLinePad is sized for the common 64-byte L1 line found on
// mainstream x86-64 and arm64 parts. internal/platform.CacheLineSize
// can probe the real value for diagnostics, but the padding below is
// fixed at compile time the same way the teacher package pads Slot and
// RingBuffer: a runtime-probed pad would itself need to be part of the
// type's static layout, which Go does not allow.
const fenceCacheLinePad = 64

// defaultSpinRetries and defaultSleep are the two-level back-off
// defaults: spin with a runtime.Gosched yield (no sleep) for the first
// defaultSpinRetries iterations of a wait loop, then sleep.
const (
	defaultSpinRetries = 32
	defaultSleep       = 25 * time.Millisecond
	defaultCancelEvery = 256
)

// ErrCancelled is returned internally by a Fence's wait loop when the
// calling Task was cancelled while waiting to claim a slot. It only
// ever surfaces from Acquire, never from Release: once a slot is
// claimed a Task must publish it before it may exit, so Release's wait
// loop ignores cancellation.
var ErrCancelled = errors.New("ringfence: task cancelled while claiming a slot")

// ErrNextFenceUnset is a protocol violation: Acquire or Release called
// before SetNextFence wired this fence into a Pipeline.
var ErrNextFenceUnset = errors.New("ringfence: fence has no next fence set")

// Fence is the coordination boundary between one pipeline stage and its
// neighbour. AtomicFence is the lock-free implementation shipped by
// this package; the interface exists so a second implementation (a
// mutex-based fence, noted but never built in the original design) can
// be added without changing Task or Pipeline.
type Fence[Slot any] interface {
	// Acquire reserves the next sequence number for task and returns
	// a pointer to its ring cell, blocking until it is safe to claim.
	Acquire(task *Task[Slot]) (*Slot, error)
	// Release publishes that task's currently claimed sequence is
	// complete, blocking until it is safe to announce.
	Release(task *Task[Slot]) error
	// AddTask registers a worker's published cursor with this fence.
	// Must be called before the task starts.
	AddTask(task *Task[Slot])
	// MinPublished returns the minimum published sequence across every
	// task bound to this fence, or SeqMax if none have claimed yet.
	MinPublished() Seq
	// Kind reports whether this fence is a producer or consumer.
	Kind() FenceKind
	// SetNextFence wires this fence to its neighbour. Must be called
	// before any bound task starts.
	SetNextFence(next Fence[Slot])
}

// AtomicFence is the lock-free Fence implementation: a claim counter
// advanced by compare-and-swap, and a set of per-task published
// sequences read with acquire ordering to compute MinPublished.
type AtomicFence[Slot any] struct {
	kind      FenceKind
	ring      *Ring[Slot]
	nextClaim atomic.Uint64

	nextFence   Fence[Slot]
	spinRetries int
	sleepFor    time.Duration

	mu    sync.Mutex
	tasks []*Task[Slot]

	// _pad pushes sizeof(AtomicFence) past one cache line so that two
	// fences placed close together on the heap do not share a line:
	// writes to one fence's nextClaim must not invalidate a sibling
	// fence's cache line.
	_pad [fenceCacheLinePad]byte
}

// FenceOption configures an AtomicFence at construction time.
type FenceOption[Slot any] func(*AtomicFence[Slot])

// WithSpinRetries overrides the default number of spin iterations
// (runtime.Gosched calls) before a wait loop falls back to sleeping.
func WithSpinRetries[Slot any](n int) FenceOption[Slot] {
	return func(f *AtomicFence[Slot]) { f.spinRetries = n }
}

// WithSleep overrides the default sleep duration used once a wait loop
// has exhausted its spin retries.
func WithSleep[Slot any](d time.Duration) FenceOption[Slot] {
	return func(f *AtomicFence[Slot]) { f.sleepFor = d }
}

// NewAtomicFence constructs a fence of the given kind bound to ring.
// kind, ring, spinRetries and sleepFor are immutable once wiring
// (SetNextFence, AddTask) completes.
func NewAtomicFence[Slot any](kind FenceKind, ring *Ring[Slot], opts ...FenceOption[Slot]) *AtomicFence[Slot] {
	f := &AtomicFence[Slot]{
		kind:        kind,
		ring:        ring,
		spinRetries: defaultSpinRetries,
		sleepFor:    defaultSleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Kind reports whether this fence is a producer or consumer.
func (f *AtomicFence[Slot]) Kind() FenceKind { return f.kind }

// SetNextFence wires this fence to its neighbour in the pipeline cycle.
func (f *AtomicFence[Slot]) SetNextFence(next Fence[Slot]) {
	assertf(f.nextFence == nil, "SetNextFence called twice on a %v fence", f.kind)
	f.nextFence = next
}

// AddTask registers a worker's published cursor with this fence. Must
// complete before the task is started.
func (f *AtomicFence[Slot]) AddTask(task *Task[Slot]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.tasks {
		assertf(existing != task, "task registered twice with the same fence")
	}
	f.tasks = append(f.tasks, task)
}

// MinPublished returns min(task.currentSeq) over every task bound to
// this fence, with SeqMax (idle) ignored by the reduction unless every
// task is idle, in which case it reports SeqMax — the stage has not
// started. f.tasks is only appended to during wiring, before any task
// starts, so it is read here without taking f.mu.
func (f *AtomicFence[Slot]) MinPublished() Seq {
	min := SeqMax
	for _, t := range f.tasks {
		if s := t.currentSeq.Load(); s < min {
			min = s
		}
	}
	return min
}

// Acquire implements the claim side of the protocol: wait for safety,
// CAS the claim counter, publish the claimed sequence to task's own
// cursor.
func (f *AtomicFence[Slot]) Acquire(task *Task[Slot]) (*Slot, error) {
	if f.nextFence == nil {
		return nil, ErrNextFenceUnset
	}

	pauses := 0
	for {
		next := f.nextClaim.Load()

		for !f.safeToClaim(next) {
			task.currentSeq.Store(next)
			if err := f.waitCancellable(&pauses, task); err != nil {
				return nil, err
			}
		}

		if f.nextClaim.CompareAndSwap(next, next+1) {
			task.currentSeq.Store(next)
			return f.ring.At(next), nil
		}
		// Another worker at this stage won the race; restart.
	}
}

// safeToClaim implements the two safety predicates from the spec: a
// producer must not overwrite a slot a downstream worker still holds,
// a consumer must not read ahead of what upstream has published.
func (f *AtomicFence[Slot]) safeToClaim(next Seq) bool {
	minPub := f.nextFence.MinPublished()

	switch f.kind {
	case Producer:
		if minPub == SeqMax {
			// No downstream worker has claimed anything yet, so no
			// cell has been read: the producer may fill the ring once
			// but must not lap it.
			return next < f.ring.Size()
		}
		return f.ring.Index(next) != f.ring.Index(minPub)
	case Consumer:
		// The original source's consumer predicate reads
		// "next == minPub || minPub != SeqMax", which waits in
		// almost every steady-state case — inverted from its own
		// stated intent. The correct predicate: upstream's minimum
		// in-flight claim must have moved strictly past next. Since
		// a worker only reclaims after releasing, minPub > next
		// implies sequence next was fully released upstream.
		return minPub != SeqMax && minPub > next
	default:
		return false
	}
}

// Release implements the publish side of the protocol: wait until it
// is safe to announce that task's current sequence is complete, then
// store it back so the upstream-visible cursor advances with release
// ordering. Unlike Acquire's wait, this wait is never cancelled — a
// task must not exit while holding a claim without publishing it, or
// every downstream stage deadlocks.
func (f *AtomicFence[Slot]) Release(task *Task[Slot]) error {
	if f.nextFence == nil {
		return ErrNextFenceUnset
	}

	current := task.currentSeq.Load()
	pauses := 0
	for {
		minPub := f.nextFence.MinPublished()
		if minPub == SeqMax || f.ring.Index(current+1) != f.ring.Index(minPub) {
			break
		}
		f.waitUncancellable(&pauses)
	}

	task.currentSeq.Store(current)
	return nil
}

// waitCancellable implements the two-level back-off: spin via
// runtime.Gosched for spinRetries iterations, then sleep sleepFor,
// returning ErrCancelled if task is stopped while sleeping.
func (f *AtomicFence[Slot]) waitCancellable(pauses *int, task *Task[Slot]) error {
	if *pauses < f.spinRetries {
		runtime.Gosched()
		*pauses++
		return nil
	}

	timer := time.NewTimer(f.sleepFor)
	defer timer.Stop()
	select {
	case <-task.cancel:
		return ErrCancelled
	case <-timer.C:
	}
	*pauses++
	return nil
}

// waitUncancellable is waitCancellable's sibling for Release, which
// must always complete once a slot is claimed.
func (f *AtomicFence[Slot]) waitUncancellable(pauses *int) {
	if *pauses < f.spinRetries {
		runtime.Gosched()
		*pauses++
		return
	}
	time.Sleep(f.sleepFor)
	*pauses++
}

var _ Fence[struct{}] = (*AtomicFence[struct{}])(nil)
