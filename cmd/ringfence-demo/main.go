// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command ringfence-demo drives the canonical four-stage pipeline
// scenario (one producer, two parallel consumers on a shared middle
// fence, one final consumer) for a configurable duration, and
// optionally runs the foo/bar/baz Bloom filter scenario.
package main

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/marcolazzari/ringfence"
	"github.com/marcolazzari/ringfence/bloom"
	"github.com/marcolazzari/ringfence/internal/platform"
)

var cli struct {
	RingSize  uint64        `help:"Number of cells in the ring; must be a power of two." default:"8"`
	Duration  time.Duration `help:"How long to run the pipeline before stopping." default:"10s"`
	LogLevel  string        `help:"zerolog level: trace, debug, info, warn, error." default:"info" enum:"trace,debug,info,warn,error"`
	BloomDemo bool          `help:"Also run the foo/bar/baz Bloom filter scenario." default:"false"`
}

func main() {
	kong.Parse(&cli)

	level, err := zerolog.ParseLevel(cli.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	log.Info().Int("cache_line_size", platform.CacheLineSize(log)).Msg("platform probe")

	if cli.BloomDemo {
		runBloomDemo(log)
	}

	if err := runPipelineDemo(log); err != nil {
		log.Fatal().Err(err).Msg("pipeline demo failed")
	}
}

func runBloomDemo(log zerolog.Logger) {
	filter, err := bloom.New(10000, 0.01)
	if err != nil {
		log.Fatal().Err(err).Msg("bloom.New failed")
	}

	filter.Insert([]byte("foo"))
	filter.Insert([]byte("bar"))

	log.Info().
		Bool("member_foo", filter.Member([]byte("foo"))).
		Bool("member_bar", filter.Member([]byte("bar"))).
		Bool("member_baz", filter.Member([]byte("baz"))).
		Uint64("bits_set", filter.Count()).
		Uint64("num_bits", filter.NumBits()).
		Uint64("num_hashes", filter.NumHashes()).
		Msg("bloom filter demo")
}

func runPipelineDemo(log zerolog.Logger) error {
	ring, err := ringfence.NewRing[int64](cli.RingSize)
	if err != nil {
		return err
	}

	producerFence := ringfence.NewAtomicFence[int64](ringfence.Producer, ring)
	middleFence := ringfence.NewAtomicFence[int64](ringfence.Consumer, ring)
	finalFence := ringfence.NewAtomicFence[int64](ringfence.Consumer, ring)

	p := ringfence.NewPipeline(ring)
	p.AddProducer(producerFence)
	p.AddConsumer(middleFence)
	p.AddConsumer(finalFence)

	var producerSeq atomic.Int64
	var processed atomic.Int64

	p.AddTask(producerFence, func(slot *int64) error {
		seq := producerSeq.Add(1) - 1
		*slot = seq * 4
		return nil
	}, ringfence.WithLogger[int64](log.With().Str("task", "producer").Logger()))

	p.AddTask(middleFence, func(slot *int64) error {
		*slot++
		return nil
	}, ringfence.WithLogger[int64](log.With().Str("task", "consumer-a").Logger()))

	p.AddTask(middleFence, func(slot *int64) error {
		*slot += 2
		return nil
	}, ringfence.WithLogger[int64](log.With().Str("task", "consumer-b").Logger()))

	p.AddTask(finalFence, func(slot *int64) error {
		rem := *slot % 4
		*slot += 3 - rem
		processed.Add(1)
		return nil
	}, ringfence.WithLogger[int64](log.With().Str("task", "consumer-final").Logger()))

	if err := p.Wire(); err != nil {
		return err
	}

	log.Info().Uint64("ring_size", cli.RingSize).Dur("duration", cli.Duration).Msg("starting pipeline")
	p.Start()

	time.Sleep(cli.Duration)

	p.Stop()
	log.Info().Int64("slots_processed", processed.Load()).Msg("pipeline stopped")
	return nil
}
