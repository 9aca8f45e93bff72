// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !linux

package platform

import "errors"

var errUnsupportedPlatform = errors.New("platform: cache line probe not implemented on this GOOS")

func probe() (int, error) {
	return 0, errUnsupportedPlatform
}
