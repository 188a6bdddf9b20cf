// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package isaac provides Bob Jenkins' ISAAC generator as an overwrite
// keystream.
//
// ISAAC keeps a 256-word internal state and produces 256 32-bit results
// per shuffle, emitted here as 1024-byte blocks. Seed material is loaded
// into the result array and mixed with the standard golden-ratio
// initialization.
//
// This package is part of the experimental "x" modules and may be subject
// to change.
package isaac

import (
	"encoding/binary"
	"errors"
)

// BlockSize is the number of bytes produced per shuffle.
const BlockSize = 1024

// ErrEmptySeed is returned when the seed contains no bytes.
var ErrEmptySeed = errors.New("isaac: empty seed")

// Stream is a single-owner ISAAC keystream. It is not safe for concurrent
// use.
type Stream struct {
	mm         [256]uint32
	rsl        [256]uint32
	aa, bb, cc uint32
	buf        [BlockSize]byte
	rem        int
}

// New seeds the generator with up to 1024 bytes of seed material.
func New(seed []byte) (*Stream, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	s := &Stream{}
	for i := 0; i < 256 && i*4 < len(seed); i++ {
		var w [4]byte
		copy(w[:], seed[i*4:])
		s.rsl[i] = binary.LittleEndian.Uint32(w[:])
	}
	s.init()
	return s, nil
}

// Fill writes exactly len(p) keystream bytes into p.
func (s *Stream) Fill(p []byte) {
	for s.rem > 0 && len(p) > 0 {
		p[0] = s.buf[BlockSize-s.rem]
		p = p[1:]
		s.rem--
	}

	for len(p) > 0 {
		s.shuffle()
		for i, w := range s.rsl {
			binary.LittleEndian.PutUint32(s.buf[i*4:], w)
		}
		n := copy(p, s.buf[:])
		p = p[n:]
		s.rem = BlockSize - n
	}
}

// Snapshot returns an independent stream replaying from the current
// position.
func (s *Stream) Snapshot() *Stream {
	c := *s
	return &c
}

// init performs the standard randinit mix, folding the seeded result
// array into the state twice.
func (s *Stream) init() {
	var a, b, c, d, e, f, g, h uint32 = goldenRatio, goldenRatio, goldenRatio,
		goldenRatio, goldenRatio, goldenRatio, goldenRatio, goldenRatio
	for i := 0; i < 4; i++ {
		mix(&a, &b, &c, &d, &e, &f, &g, &h)
	}
	for pass := 0; pass < 2; pass++ {
		src := &s.rsl
		if pass == 1 {
			src = &s.mm
		}
		for i := 0; i < 256; i += 8 {
			a += src[i]
			b += src[i+1]
			c += src[i+2]
			d += src[i+3]
			e += src[i+4]
			f += src[i+5]
			g += src[i+6]
			h += src[i+7]
			mix(&a, &b, &c, &d, &e, &f, &g, &h)
			s.mm[i] = a
			s.mm[i+1] = b
			s.mm[i+2] = c
			s.mm[i+3] = d
			s.mm[i+4] = e
			s.mm[i+5] = f
			s.mm[i+6] = g
			s.mm[i+7] = h
		}
	}
}

const goldenRatio = 0x9e3779b9

// shuffle advances the generator by one round, refilling rsl.
func (s *Stream) shuffle() {
	s.cc++
	s.bb += s.cc
	for i := 0; i < 256; i++ {
		x := s.mm[i]
		switch i & 3 {
		case 0:
			s.aa ^= s.aa << 13
		case 1:
			s.aa ^= s.aa >> 6
		case 2:
			s.aa ^= s.aa << 2
		case 3:
			s.aa ^= s.aa >> 16
		}
		s.aa += s.mm[(i+128)&255]
		y := s.mm[(x>>2)&255] + s.aa + s.bb
		s.mm[i] = y
		s.bb = s.mm[(y>>10)&255] + x
		s.rsl[i] = s.bb
	}
}

func mix(a, b, c, d, e, f, g, h *uint32) {
	*a ^= *b << 11
	*d += *a
	*b += *c
	*b ^= *c >> 2
	*e += *b
	*c += *d
	*c ^= *d << 8
	*f += *c
	*d += *e
	*d ^= *e >> 16
	*g += *d
	*e += *f
	*e ^= *f << 10
	*h += *e
	*f += *g
	*f ^= *g >> 4
	*a += *f
	*g += *h
	*g ^= *h << 8
	*b += *g
	*h += *a
	*h ^= *a >> 9
	*c += *h
	*a += *b
}
