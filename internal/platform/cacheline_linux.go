// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build linux

package platform

import "golang.org/x/sys/unix"

// _SC_LEVEL1_DCACHE_LINESIZE isn't exposed by golang.org/x/sys/unix on
// every architecture it supports, so it is pinned here to the value
// glibc and musl both report on linux/amd64 and linux/arm64.
const scLevel1DCacheLinesize = 190

func probe() (int, error) {
	n, err := unix.Sysconf(scLevel1DCacheLinesize)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
