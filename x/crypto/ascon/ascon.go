// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package ascon provides a keystream built on the Ascon permutation in its
// PRF configuration.
//
// The 320-bit state is loaded with the PRF initialization vector and the
// 128-bit key derived from the seed, then transformed with the 12-round
// permutation P12. Each squeeze emits the full 40-byte state and applies
// P12 again. A 40-byte block buffer absorbs partial-block consumers.
//
// This package is part of the experimental "x" modules and may be subject
// to change.
package ascon

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// StateSize is the number of bytes emitted per squeeze.
const StateSize = 40

// KeySize is the number of seed bytes consumed by New.
const KeySize = 16

// ivPRF is the Ascon-PRF v1.3 variant-6 initialization vector. It is a
// fixed constant of the construction, not a tunable.
const ivPRF = 0x80808c0000000000

// rc holds the twelve round constants of P12.
var rc = [12]uint64{
	0xf0, 0xe1, 0xd2, 0xc3, 0xb4, 0xa5, 0x96, 0x87, 0x78, 0x69, 0x5a, 0x4b,
}

// ErrShortSeed is returned when the seed is shorter than KeySize.
var ErrShortSeed = errors.New("ascon: seed shorter than 16 bytes")

// Stream is a single-owner Ascon-PRF keystream. It is not safe for
// concurrent use.
type Stream struct {
	s   [5]uint64
	buf [StateSize]byte
	rem int
}

// New loads the first 16 seed bytes as the key, initializes the sponge
// with the PRF IV, and applies P12.
func New(seed []byte) (*Stream, error) {
	if len(seed) < KeySize {
		return nil, ErrShortSeed
	}
	st := &Stream{}
	st.s[0] = ivPRF
	st.s[1] = binary.BigEndian.Uint64(seed[0:8])
	st.s[2] = binary.BigEndian.Uint64(seed[8:16])
	p12(&st.s)
	return st, nil
}

// Fill writes exactly len(p) keystream bytes into p.
func (s *Stream) Fill(p []byte) {
	for s.rem > 0 && len(p) > 0 {
		p[0] = s.buf[StateSize-s.rem]
		p = p[1:]
		s.rem--
	}

	for len(p) >= StateSize {
		s.squeeze(p[:StateSize])
		p = p[StateSize:]
	}

	if len(p) > 0 {
		s.squeeze(s.buf[:])
		copy(p, s.buf[:len(p)])
		s.rem = StateSize - len(p)
	}
}

// Snapshot returns an independent stream replaying from the current
// position.
func (s *Stream) Snapshot() *Stream {
	c := *s
	return &c
}

// squeeze copies the state into out and advances the sponge.
func (s *Stream) squeeze(out []byte) {
	for i := 0; i < 5; i++ {
		binary.BigEndian.PutUint64(out[i*8:], s.s[i])
	}
	p12(&s.s)
}

// p12 applies the 12-round Ascon permutation.
func p12(s *[5]uint64) {
	for _, c := range rc {
		round(s, c)
	}
}

// round applies one permutation round: constant addition, the 3-bit
// nonlinear χ layer over the five lanes, and the per-lane linear
// diffusion.
func round(s *[5]uint64, c uint64) {
	x0, x1, x2, x3, x4 := s[0], s[1], s[2], s[3], s[4]

	x2 ^= c

	x0 ^= x4
	x4 ^= x3
	x2 ^= x1
	t0 := ^x0 & x1
	t1 := ^x1 & x2
	t2 := ^x2 & x3
	t3 := ^x3 & x4
	t4 := ^x4 & x0
	x0 ^= t1
	x1 ^= t2
	x2 ^= t3
	x3 ^= t4
	x4 ^= t0
	x1 ^= x0
	x0 ^= x4
	x3 ^= x2
	x2 = ^x2

	x0 ^= bits.RotateLeft64(x0, -19) ^ bits.RotateLeft64(x0, -28)
	x1 ^= bits.RotateLeft64(x1, -61) ^ bits.RotateLeft64(x1, -39)
	x2 ^= bits.RotateLeft64(x2, -1) ^ bits.RotateLeft64(x2, -6)
	x3 ^= bits.RotateLeft64(x3, -10) ^ bits.RotateLeft64(x3, -17)
	x4 ^= bits.RotateLeft64(x4, -7) ^ bits.RotateLeft64(x4, -41)

	s[0], s[1], s[2], s[3], s[4] = x0, x1, x2, x3, x4
}
