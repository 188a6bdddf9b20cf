// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for aesxts: determinism, agreement with the reference XTS cipher,
// unit continuity, snapshot replay, empty-seed refusal.

package aesxts

import (
	"bytes"
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/xts"
)

// Test_AESXTS_Determinism verifies that equal seeds produce byte-identical
// streams.
func Test_AESXTS_Determinism(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("xts determinism seed")
	a, err := New(seed)
	is.NoError(err)
	b, err := New(seed)
	is.NoError(err)

	buf1 := make([]byte, 4096)
	buf2 := make([]byte, 4096)
	a.Fill(buf1)
	b.Fill(buf2)
	is.Equal(buf1, buf2)
}

// Test_AESXTS_MatchesCipher verifies the stream is the XTS encryption of
// zeroed 64-byte units under BLAKE2b-512(seed), sector numbers from zero.
func Test_AESXTS_MatchesCipher(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("xts reference seed")
	s, err := New(seed)
	is.NoError(err)

	got := make([]byte, 3*UnitSize)
	s.Fill(got)

	key := blake2b.Sum512(seed)
	c, err := xts.NewCipher(aes.NewCipher, key[:])
	is.NoError(err)

	want := make([]byte, 3*UnitSize)
	zero := make([]byte, UnitSize)
	for sector := uint64(0); sector < 3; sector++ {
		c.Encrypt(want[sector*UnitSize:(sector+1)*UnitSize], zero, sector)
	}
	is.Equal(want, got)
}

// Test_AESXTS_FillContinuity verifies that ragged fills produce the same
// stream as one large fill.
func Test_AESXTS_FillContinuity(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	seed := []byte("xts continuity")
	a, err := New(seed)
	is.NoError(err)
	b, err := New(seed)
	is.NoError(err)

	whole := make([]byte, 333)
	a.Fill(whole)

	pieces := make([]byte, 0, len(whole))
	for _, n := range []int{5, 64, 1, 63, 128, 72} {
		chunk := make([]byte, n)
		b.Fill(chunk)
		pieces = append(pieces, chunk...)
	}
	is.Equal(whole, pieces)
}

// Test_AESXTS_Snapshot verifies snapshot replay from mid-stream.
func Test_AESXTS_Snapshot(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	s, err := New([]byte("xts snapshot"))
	is.NoError(err)

	skip := make([]byte, 70)
	s.Fill(skip)
	snap := s.Snapshot()

	a := make([]byte, 200)
	s.Fill(a)
	b := make([]byte, 200)
	snap.Fill(b)
	is.True(bytes.Equal(a, b))
}

// Test_AESXTS_EmptySeed verifies construction is refused without seed
// material.
func Test_AESXTS_EmptySeed(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := New(nil)
	is.ErrorIs(err, ErrEmptySeed)
}
