// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for ascon: pinned first squeeze, determinism, partial-block
// buffering, snapshot replay.

package ascon

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test_Ascon_FirstSqueeze pins the first 40-byte squeeze for a fixed key:
// state loaded with the PRF IV and the key words, one P12 applied.
func Test_Ascon_FirstSqueeze(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := make([]byte, KeySize)
	for i := range seed {
		seed[i] = byte(0x10 + i)
	}
	s, err := New(seed)
	is.NoError(err)

	out := make([]byte, StateSize)
	s.Fill(out)
	is.Equal("de6c33e4d393733c521336c72aafe599b97c6a4d9e67c4912fe0762cb98de67799e314be47d09056",
		hex.EncodeToString(out))
}

// Test_Ascon_ShortSeed verifies seeds under 16 bytes are refused.
func Test_Ascon_ShortSeed(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := New(make([]byte, 8))
	is.ErrorIs(err, ErrShortSeed)
}

// Test_Ascon_Determinism verifies equal seeds produce byte-identical
// streams.
func Test_Ascon_Determinism(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("0123456789abcdef")
	a, err := New(seed)
	is.NoError(err)
	b, err := New(seed)
	is.NoError(err)

	buf1 := make([]byte, 1000)
	buf2 := make([]byte, 1000)
	a.Fill(buf1)
	b.Fill(buf2)
	is.Equal(buf1, buf2)
}

// Test_Ascon_FillContinuity verifies ragged fills against one large fill,
// exercising the 40-byte block buffer.
func Test_Ascon_FillContinuity(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("fedcba9876543210")
	a, err := New(seed)
	is.NoError(err)
	b, err := New(seed)
	is.NoError(err)

	whole := make([]byte, 203)
	a.Fill(whole)

	pieces := make([]byte, 0, len(whole))
	for _, n := range []int{1, 39, 40, 41, 13, 69} {
		chunk := make([]byte, n)
		b.Fill(chunk)
		pieces = append(pieces, chunk...)
	}
	is.Equal(whole, pieces)
}

// Test_Ascon_Snapshot verifies snapshot replay from mid-stream.
func Test_Ascon_Snapshot(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	s, err := New([]byte("snapshot-ascon-k"))
	is.NoError(err)

	skip := make([]byte, 55)
	s.Fill(skip)
	snap := s.Snapshot()

	a := make([]byte, 160)
	s.Fill(a)
	b := make([]byte, 160)
	snap.Fill(b)
	is.True(bytes.Equal(a, b))
}
