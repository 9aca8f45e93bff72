// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ringfence

import "errors"

// ErrNoProducer is returned by Wire when no producer fence was added.
var ErrNoProducer = errors.New("ringfence: pipeline has no producer fence")

// ErrMultipleProducers is returned by Wire when more than one producer
// fence was added; a pipeline is a single cycle with exactly one
// producer stage.
var ErrMultipleProducers = errors.New("ringfence: pipeline has more than one producer fence")

// ErrNoConsumers is returned by Wire when no consumer fence was added.
var ErrNoConsumers = errors.New("ringfence: pipeline has no consumer fence")

// ErrFenceHasNoTasks is returned by Wire when a fence was added with no
// task bound to it — such a fence can never advance its claim counter,
// which would stall the rest of the pipeline.
var ErrFenceHasNoTasks = errors.New("ringfence: a fence has no tasks bound to it")

// Pipeline wires a directed cycle of fences — one producer followed by
// a chain of consumers closing back on the producer — and holds the
// tasks bound to each. It holds no state other than that wiring: once
// Wire and Start have run, all coordination happens inside the fences
// and tasks themselves.
type Pipeline[Slot any] struct {
	ring         *Ring[Slot]
	producer     Fence[Slot]
	consumers    []Fence[Slot]
	tasksByFence map[Fence[Slot]][]*Task[Slot]
	allTasks     []*Task[Slot]
	wired        bool
}

// NewPipeline constructs an empty Pipeline over ring. Fences and tasks
// are added with AddProducer, AddConsumer and AddTask before Wire.
func NewPipeline[Slot any](ring *Ring[Slot]) *Pipeline[Slot] {
	return &Pipeline[Slot]{
		ring:         ring,
		tasksByFence: make(map[Fence[Slot]][]*Task[Slot]),
	}
}

// AddProducer registers fence as the pipeline's single producer stage.
// Calling this more than once is a programmer error surfaced by Wire.
func (p *Pipeline[Slot]) AddProducer(fence Fence[Slot]) {
	if p.producer == nil {
		p.producer = fence
	} else {
		// Record the duplicate; Wire reports ErrMultipleProducers.
		p.consumers = append(p.consumers, fence)
	}
}

// AddConsumer registers fence as a consumer stage. Consumers are wired
// in the order they are added: the first consumer added reads directly
// from the producer, the last consumer added closes the cycle back to
// the producer.
func (p *Pipeline[Slot]) AddConsumer(fence Fence[Slot]) {
	p.consumers = append(p.consumers, fence)
}

// AddTask binds a task to fence and schedules it to be registered
// (Fence.AddTask) when Wire runs, then started when Start runs.
func (p *Pipeline[Slot]) AddTask(fence Fence[Slot], process func(*Slot) error, opts ...TaskOption[Slot]) *Task[Slot] {
	t := NewTask(fence, process, opts...)
	p.tasksByFence[fence] = append(p.tasksByFence[fence], t)
	p.allTasks = append(p.allTasks, t)
	return t
}

// Wire closes the fence cycle and registers every task with its fence.
// It must be called exactly once, after every AddProducer/AddConsumer/
// AddTask call and before Start.
func (p *Pipeline[Slot]) Wire() error {
	if p.producer == nil {
		return ErrNoProducer
	}
	if len(p.consumers) == 0 {
		return ErrNoConsumers
	}
	// AddProducer appends a duplicate producer into consumers when
	// called twice; surface that as a distinct, clearer error.
	for _, c := range p.consumers {
		if c.Kind() == Producer {
			return ErrMultipleProducers
		}
	}

	for _, fence := range append([]Fence[Slot]{p.producer}, p.consumers...) {
		if len(p.tasksByFence[fence]) == 0 {
			return ErrFenceHasNoTasks
		}
	}

	// consumer[i] reads from consumer[i-1]; consumer[0] reads from the
	// producer; the producer reads from the last consumer, closing the
	// loop so it never laps a slot still held downstream.
	p.consumers[0].SetNextFence(p.producer)
	for i := 1; i < len(p.consumers); i++ {
		p.consumers[i].SetNextFence(p.consumers[i-1])
	}
	p.producer.SetNextFence(p.consumers[len(p.consumers)-1])

	for fence, tasks := range p.tasksByFence {
		for _, t := range tasks {
			fence.AddTask(t)
		}
	}

	p.wired = true
	return nil
}

// Start launches every task's worker goroutine. Wire must have
// succeeded first.
func (p *Pipeline[Slot]) Start() {
	for _, t := range p.allTasks {
		t.Start()
	}
}

// Stop requests cancellation of every task and blocks until all have
// joined.
func (p *Pipeline[Slot]) Stop() {
	for _, t := range p.allTasks {
		t.Stop()
	}
}

// Wired reports whether Wire has completed successfully.
func (p *Pipeline[Slot]) Wired() bool { return p.wired }
