// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for xoshiro: pinned first state emission, zero-seed rejection,
// determinism, snapshot replay.

package xoshiro

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test_Xoshiro_FirstStep pins the first 32 emitted bytes for the seed
// 0x01..0x20: the state is stepped once, then emitted whole,
// little-endian.
func Test_Xoshiro_FirstStep(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	s, err := New(seed)
	is.NoError(err)

	out := make([]byte, StateSize)
	s.Fill(out)
	is.Equal("1112131415161738191a1b1c1d1e1f001010020406080a0c0202020202060202",
		hex.EncodeToString(out))
}

// Test_Xoshiro_RejectsZeroState verifies the all-zero seed is refused:
// it is a fixed point of the step function.
func Test_Xoshiro_RejectsZeroState(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := New(make([]byte, SeedSize))
	is.ErrorIs(err, ErrZeroSeed)
}

// Test_Xoshiro_ShortSeed verifies seeds under 32 bytes are refused.
func Test_Xoshiro_ShortSeed(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := New(make([]byte, 16))
	is.ErrorIs(err, ErrShortSeed)
}

// Test_Xoshiro_Determinism verifies equal seeds produce byte-identical
// streams, including across ragged fills.
func Test_Xoshiro_Determinism(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("xoshiro-seed-of-32-bytes-exactly")
	a, err := New(seed)
	is.NoError(err)
	b, err := New(seed)
	is.NoError(err)

	whole := make([]byte, 301)
	a.Fill(whole)

	pieces := make([]byte, 0, len(whole))
	for _, n := range []int{31, 32, 33, 100, 105} {
		chunk := make([]byte, n)
		b.Fill(chunk)
		pieces = append(pieces, chunk...)
	}
	is.Equal(whole, pieces)
}

// Test_Xoshiro_Snapshot verifies snapshot replay from mid-stream.
func Test_Xoshiro_Snapshot(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("snapshot-seed-of-32-bytes-here!!")
	s, err := New(seed)
	is.NoError(err)

	skip := make([]byte, 50)
	s.Fill(skip)
	snap := s.Snapshot()

	a := make([]byte, 96)
	s.Fill(a)
	b := make([]byte, 96)
	snap.Fill(b)
	is.True(bytes.Equal(a, b))
}
