// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build ringfence_debug

package ringfence

import "fmt"

// assertf panics with the formatted message when cond is false. Only
// compiled in with -tags ringfence_debug.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("ringfence: assertion failed: "+format, args...))
	}
}
