// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package xoshiro provides the modified xoshiro-256 keystream.
//
// The generator departs from the published xoshiro256 family in two ways
// that are preserved verbatim: the state advances before any output is
// taken, and each step emits the entire 256-bit state with no output
// mixing. The emission therefore reveals the generator state; the stream
// is statistically strong filler, not a cryptographic one.
//
// This package is part of the experimental "x" modules and may be subject
// to change.
package xoshiro

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// StateSize is the number of bytes emitted per step.
const StateSize = 32

// SeedSize is the number of seed bytes consumed by New.
const SeedSize = 32

// ErrShortSeed is returned when the seed is shorter than SeedSize.
var ErrShortSeed = errors.New("xoshiro: seed shorter than 32 bytes")

// ErrZeroSeed is returned when the seed loads an all-zero state, which is
// a fixed point of the step function.
var ErrZeroSeed = errors.New("xoshiro: all-zero seed state")

// Stream is a single-owner xoshiro-256 keystream. It is not safe for
// concurrent use.
type Stream struct {
	s   [4]uint64
	buf [StateSize]byte
	rem int
}

// New loads the first 32 seed bytes as the four state words.
func New(seed []byte) (*Stream, error) {
	if len(seed) < SeedSize {
		return nil, ErrShortSeed
	}
	st := &Stream{}
	for i := 0; i < 4; i++ {
		st.s[i] = binary.LittleEndian.Uint64(seed[i*8:])
	}
	if st.s[0]|st.s[1]|st.s[2]|st.s[3] == 0 {
		return nil, ErrZeroSeed
	}
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
		s.step()
		s.emit(p[:StateSize])
		p = p[StateSize:]
	}

	if len(p) > 0 {
		s.step()
		s.emit(s.buf[:])
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

// step advances the state. The ordering is the modified variant's, not the
// published xoshiro256** ordering.
func (s *Stream) step() {
	t := s.s[1] << 17
	s.s[2] ^= s.s[0]
	s.s[3] ^= s.s[1]
	s.s[1] ^= s.s[2]
	s.s[0] ^= s.s[3]
	s.s[2] ^= t
	s.s[3] = bits.RotateLeft64(s.s[3], 45)
}

// emit serializes the whole state little-endian.
func (s *Stream) emit(out []byte) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], s.s[i])
	}
}
