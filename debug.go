// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !ringfence_debug

package ringfence

// assertf is a no-op in default builds. Build with -tags ringfence_debug
// to enable the internal consistency checks guarded by it, mirroring the
// original design's #ifndef NDEBUG assertion blocks — protocol
// violations that should never happen if Pipeline/Fence are used
// correctly, not conditions a caller can recover from.
func assertf(cond bool, format string, args ...any) {}
