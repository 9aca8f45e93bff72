// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package platform wraps the OS-level probe the coordination engine
// treats as a black-box collaborator: the L1 data cache line size. It
// provides no sleep primitive; the fences' back-off sleeps use the time
// package directly.
package platform

import "github.com/rs/zerolog"

// DefaultCacheLineSize is returned when the platform probe is unavailable
// or reports a size the caller should not trust (zero or negative). It
// matches the L1 line size on every mainstream x86-64 and arm64 target.
const DefaultCacheLineSize = 64

// CacheLineSize returns the L1 data cache line size in bytes.
//
// On Linux this is backed by sysconf(_SC_LEVEL1_DCACHE_LINESIZE). The
// original design treats a failed probe as fatal to the process; this
// port downgrades that to a logged warning and a documented fallback,
// since the probe here only informs a log line rather than gating
// struct layout (padding is sized at compile time —
// see AtomicFence in the ringfence package).
func CacheLineSize(log zerolog.Logger) int {
	size, err := probe()
	if err != nil {
		log.Warn().Err(err).Int("fallback", DefaultCacheLineSize).
			Msg("cache line size probe failed, using fallback")
		return DefaultCacheLineSize
	}
	if size <= 0 {
		log.Warn().Int("probed", size).Int("fallback", DefaultCacheLineSize).
			Msg("cache line size probe returned a non-positive value, using fallback")
		return DefaultCacheLineSize
	}
	return size
}
