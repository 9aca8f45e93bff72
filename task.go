// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// taskCacheLinePad mirrors fenceCacheLinePad: Tasks are heap-allocated
// and their currentSeq field is read by the upstream fence on every
// wait-loop iteration, so neighbouring Tasks must not share a line.
const taskCacheLinePad = 64

// taskState models the per-task lifecycle: Idle -> Claiming ->
// Owned -> Publishing -> Idle, with Cancelled absorbing from any Idle
// checkpoint.
type taskState uint8

const (
	taskIdle taskState = iota
	taskClaiming
	taskOwned
	taskPublishing
	taskCancelled
)

func (s taskState) String() string {
	switch s {
	case taskIdle:
		return "idle"
	case taskClaiming:
		return "claiming"
	case taskOwned:
		return "owned"
	case taskPublishing:
		return "publishing"
	case taskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrProcessFailed wraps an error returned by a Task's process function.
// It is fatal to the pipeline: there is no mechanism to skip or retry a
// slot without violating per-stage ordering.
var ErrProcessFailed = errors.New("ringfence: process function failed")

// TaskOption configures a Task at construction time.
type TaskOption[Slot any] func(*Task[Slot])

// WithCancelEvery overrides how many slots pass between cooperative
// cancellation checkpoints inside the task loop (in addition to the
// checkpoints already present inside every back-off wait).
func WithCancelEvery[Slot any](n int) TaskOption[Slot] {
	return func(t *Task[Slot]) { t.cancelEvery = n }
}

// WithLogger attaches a logger the task uses to report state
// transitions (at Trace level) and process failures (at Error level).
func WithLogger[Slot any](log zerolog.Logger) TaskOption[Slot] {
	return func(t *Task[Slot]) { t.log = log }
}

// WithOnFatal registers a hook invoked when process returns an error.
// It runs after the task has released its currently claimed slot, so
// the hook may safely tear down the rest of the pipeline.
func WithOnFatal[Slot any](fn func(error)) TaskOption[Slot] {
	return func(t *Task[Slot]) { t.onFatal = fn }
}

// Task is a worker goroutine bound to one Fence. It repeatedly claims a
// slot, runs a user-supplied process function against it, and releases
// the slot, until cancelled via Stop.
type Task[Slot any] struct {
	currentSeq atomic.Uint64
	_          [taskCacheLinePad - 8]byte

	fence   Fence[Slot]
	process func(*Slot) error

	cancelEvery int
	log         zerolog.Logger
	onFatal     func(error)

	cancel  chan struct{}
	done    chan struct{}
	started atomic.Bool
}

// NewTask constructs a Task bound to fence, running process against
// each claimed slot. The task is not registered with its fence and not
// started until AddTask and Start are called (Pipeline does both).
func NewTask[Slot any](fence Fence[Slot], process func(*Slot) error, opts ...TaskOption[Slot]) *Task[Slot] {
	t := &Task[Slot]{
		fence:       fence,
		process:     process,
		cancelEvery: defaultCancelEvery,
		log:         zerolog.Nop(),
		cancel:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	t.currentSeq.Store(SeqMax)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start spawns the task's worker goroutine. The task's fence must
// already be wired (SetNextFence) and registered (AddTask) before
// Start is called.
func (t *Task[Slot]) Start() {
	assertf(!t.started.Swap(true), "Task.Start called twice on the same task")
	go t.run()
}

// Stop requests cancellation and blocks until the worker goroutine has
// drained its current slot (if any) and exited. Safe to call at most
// once per task.
func (t *Task[Slot]) Stop() {
	close(t.cancel)
	<-t.done
}

func (t *Task[Slot]) run() {
	defer close(t.done)

	checkpoint := 0
	for {
		t.log.Trace().Str("state", taskClaiming.String()).Msg("task state transition")
		slot, err := t.fence.Acquire(t)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				t.log.Trace().Str("state", taskCancelled.String()).Msg("task state transition")
				return
			}
			t.log.Error().Err(err).Msg("fence acquire failed")
			return
		}

		t.log.Trace().Str("state", taskOwned.String()).Msg("task state transition")
		if procErr := t.process(slot); procErr != nil {
			t.log.Error().Err(procErr).Msg("process failed, draining slot before exit")
			_ = t.fence.Release(t)
			if t.onFatal != nil {
				t.onFatal(fmt.Errorf("%w: %v", ErrProcessFailed, procErr))
			}
			return
		}

		t.log.Trace().Str("state", taskPublishing.String()).Msg("task state transition")
		if err := t.fence.Release(t); err != nil {
			t.log.Error().Err(err).Msg("fence release failed")
			return
		}

		checkpoint++
		if checkpoint >= t.cancelEvery {
			checkpoint = 0
			select {
			case <-t.cancel:
				return
			default:
			}
		}
	}
}
