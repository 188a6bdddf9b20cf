// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package aesxts provides a deterministic AES-256-XTS keystream for
// overwrite passes.
//
// The caller-supplied seed is hashed with BLAKE2b-512; the 64-byte digest
// forms the two 256-bit XTS subkeys. Output is the encryption of zeroed
// 64-byte units under an advancing sector number that starts at zero, so
// equal seeds yield byte-identical streams.
//
// This package is part of the experimental "x" modules and may be subject
// to change.
package aesxts

import (
	"crypto/aes"
	"errors"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/xts"
)

// UnitSize is the number of bytes emitted per XTS sector.
const UnitSize = 64

// ErrEmptySeed is returned when the seed contains no bytes.
var ErrEmptySeed = errors.New("aesxts: empty seed")

// Stream is a single-owner AES-256-XTS keystream. It is not safe for
// concurrent use.
type Stream struct {
	cipher *xts.Cipher
	sector uint64
	zero   [UnitSize]byte
	buf    [UnitSize]byte
	rem    int
}

// New derives the 512-bit XTS key as BLAKE2b-512(seed) and returns a
// stream positioned at sector zero.
func New(seed []byte) (*Stream, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	key := blake2b.Sum512(seed)
	c, err := xts.NewCipher(aes.NewCipher, key[:])
	if err != nil {
		return nil, err
	}
	return &Stream{cipher: c}, nil
}

// Fill writes exactly len(p) keystream bytes into p.
func (s *Stream) Fill(p []byte) {
	for s.rem > 0 && len(p) > 0 {
		p[0] = s.buf[UnitSize-s.rem]
		p = p[1:]
		s.rem--
	}

	for len(p) >= UnitSize {
		s.cipher.Encrypt(p[:UnitSize], s.zero[:], s.sector)
		s.sector++
		p = p[UnitSize:]
	}

	if len(p) > 0 {
		s.cipher.Encrypt(s.buf[:], s.zero[:], s.sector)
		s.sector++
		copy(p, s.buf[:len(p)])
		s.rem = UnitSize - len(p)
	}
}

// Snapshot returns an independent stream replaying from the current
// position.
func (s *Stream) Snapshot() *Stream {
	c := *s
	return &c
}
