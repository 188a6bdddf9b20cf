// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package chacha provides a deterministic ChaCha20 keystream for overwrite
// passes.
//
// Unlike a pooled CSPRNG, this stream is seeded once — key = SHA-256(seed),
// zero nonce — and replayable, which is what read-back verification needs.
//
// This package is part of the experimental "x" modules and may be subject
// to change.
package chacha

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/chacha20"
)

// ErrEmptySeed is returned when the seed contains no bytes.
var ErrEmptySeed = errors.New("chacha: empty seed")

// Stream is a single-owner ChaCha20 keystream. It is not safe for
// concurrent use.
type Stream struct {
	key      [32]byte
	consumed uint64
	cipher   *chacha20.Cipher
	zero     []byte
}

// New derives the key as SHA-256(seed) and returns a stream positioned at
// the start of the keystream.
func New(seed []byte) (*Stream, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	s := &Stream{key: sha256.Sum256(seed)}
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(s.key[:], nonce[:])
	if err != nil {
		return nil, err
	}
	s.cipher = c
	return s, nil
}

// Fill writes exactly len(p) keystream bytes into p by XOR-ing the cipher
// stream into zeroed input.
func (s *Stream) Fill(p []byte) {
	if cap(s.zero) < len(p) {
		s.zero = make([]byte, len(p))
	}
	z := s.zero[:len(p)]
	for i := range z {
		z[i] = 0
	}
	s.cipher.XORKeyStream(p, z)
	s.consumed += uint64(len(p))
}

// Snapshot returns an independent stream replaying from the current
// position. The cipher itself is not copyable, so the snapshot rebuilds it
// from the key and discards the bytes already consumed.
func (s *Stream) Snapshot() *Stream {
	c := &Stream{key: s.key}
	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce[:])
	if err != nil {
		// The key was valid at New; reconstruction cannot fail.
		panic(err)
	}
	c.cipher = cipher
	c.skip(s.consumed)
	c.consumed = s.consumed
	return c
}

// skip discards n keystream bytes without touching the consumed counter.
func (s *Stream) skip(n uint64) {
	var scratch [512]byte
	for n > 0 {
		step := uint64(len(scratch))
		if n < step {
			step = n
		}
		s.cipher.XORKeyStream(scratch[:step], scratch[:step])
		n -= step
	}
}
