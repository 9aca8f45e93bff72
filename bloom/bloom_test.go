// Copyright (c) 2026 Marco Lazzari
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bloom

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsZeroCapacity(t *testing.T) {
	_, err := New(0, 0.01)
	require.True(t, errors.Is(err, ErrZeroCapacity))
}

func TestNew_RejectsInvalidProbability(t *testing.T) {
	for _, p := range []float64{-0.1, 0, 1, 1.5} {
		_, err := New(100, p)
		require.Truef(t, errors.Is(err, ErrInvalidProbability), "p = %v", p)
	}
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	f, err := New(1000, 0.01)
	require.NoError(t, err)

	keys := [][]byte{[]byte("foo"), []byte("bar"), []byte("baz"), []byte("quux")}
	for _, k := range keys {
		f.Insert(k)
	}
	for _, k := range keys {
		require.Truef(t, f.Member(k), "Member(%q) = false, want true", k)
	}
}

// TestFilter_FooBarBazScenario reproduces the literal deterministic
// scenario from the original source's driver: insert "foo" and "bar",
// then assert membership of "foo" and non-membership of "baz".
func TestFilter_FooBarBazScenario(t *testing.T) {
	f, err := New(10000, 0.01)
	require.NoError(t, err)

	f.Insert([]byte("foo"))
	f.Insert([]byte("bar"))

	require.True(t, f.Member([]byte("foo")))
	require.False(t, f.Member([]byte("baz")))
}

func TestFilter_Clear(t *testing.T) {
	f, err := New(1000, 0.01)
	require.NoError(t, err)

	f.Insert([]byte("foo"))
	f.Insert([]byte("bar"))
	require.Greater(t, f.Count(), uint64(0))

	f.Clear()
	require.Equal(t, uint64(0), f.Count())
	require.False(t, f.Member([]byte("foo")))
	require.False(t, f.Member([]byte("bar")))
}

func TestFilter_Deterministic(t *testing.T) {
	a, err := New(500, 0.02)
	require.NoError(t, err)
	b, err := New(500, 0.02)
	require.NoError(t, err)

	for i := range 200 {
		key := []byte{byte(i), byte(i >> 8)}
		a.Insert(key)
		b.Insert(key)
	}

	require.Equal(t, a.NumBits(), b.NumBits())
	require.Equal(t, a.NumHashes(), b.NumHashes())
	require.Equal(t, a.Count(), b.Count())

	for i := range 200 {
		key := []byte{byte(i), byte(i >> 8)}
		require.Equal(t, a.Member(key), b.Member(key))
	}
}

// TestFilter_FalsePositiveRate reproduces the bloom_test.cpp scenario at
// a scale fast enough for a unit test: insert a contiguous range of
// 4-byte integer keys, then probe a disjoint range and check the
// measured false-positive rate stays within the configured tolerance.
func TestFilter_FalsePositiveRate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping false-positive rate measurement in -short mode")
	}

	const n = 20000
	const target = 0.01

	f, err := New(n, target)
	require.NoError(t, err)

	for i := range uint32(n) {
		f.Insert(encodeUint32(i))
	}

	falsePositives := 0
	for i := uint32(n); i < 2*n; i++ {
		if f.Member(encodeUint32(i)) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(n)
	require.Lessf(t, math.Abs(rate-target), target,
		"measured false positive rate %v too far from target %v", rate, target)
}

// TestFilter_HundredThousandScenario is the full-scale variant of the
// bloom_test.cpp 100k-key scenario. It is slow enough to gate behind
// -short so the default test run stays fast.
func TestFilter_HundredThousandScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 100k-key scenario in -short mode")
	}

	const n = 100000
	const target = 0.01

	f, err := New(n, target)
	require.NoError(t, err)

	for i := range uint32(n) {
		f.Insert(encodeUint32(i))
		require.True(t, f.Member(encodeUint32(i)))
	}

	falsePositives := 0
	for i := uint32(n); i < 2*n; i++ {
		if f.Member(encodeUint32(i)) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(n)
	require.Less(t, math.Abs(rate-target), target)
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
