// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package prng selects, seeds, and gates the keystream generators that
// feed random overwrite passes.
//
// Every generator sits behind the same contract: construct once from a
// seed, then Fill arbitrary-length buffers with a lazy, infinite byte
// sequence. Construction is the only way to restart a stream; Snapshot
// yields an independent replay handle so a verification pass can re-derive
// exactly the bytes a write pass produced.
package prng

import (
	"errors"
	"fmt"

	"github.com/sixafter/scour/x/crypto/aesctr"
	"github.com/sixafter/scour/x/crypto/aesxts"
	"github.com/sixafter/scour/x/crypto/ascon"
	"github.com/sixafter/scour/x/crypto/chacha"
	"github.com/sixafter/scour/x/rand/isaac"
	"github.com/sixafter/scour/x/rand/twister"
	"github.com/sixafter/scour/x/rand/xoshiro"
)

// Stream is the uniform keystream contract. Fill writes exactly len(p)
// bytes and never fails after successful construction; it must be called
// from a single goroutine. Snapshot returns an independent stream that
// replays from the current position.
type Stream interface {
	Fill(p []byte)
	Snapshot() Stream
}

// Algorithm selects one of the available generators.
type Algorithm int

// The generator suite.
const (
	Twister Algorithm = iota
	ISAAC
	Xoshiro256
	AESCTR
	AESXTS
	Ascon
	ChaCha20
)

var (
	// ErrUnknownAlgorithm is returned for an unrecognized selector.
	ErrUnknownAlgorithm = errors.New("prng: unknown algorithm")

	// ErrGateRejected is returned when a freshly seeded generator fails
	// the entropy gate. The generator is discarded unused.
	ErrGateRejected = errors.New("prng: entropy gate rejected sample")
)

// String returns the selector name as accepted by Parse.
func (a Algorithm) String() string {
	switch a {
	case Twister:
		return "twister"
	case ISAAC:
		return "isaac"
	case Xoshiro256:
		return "xoshiro256"
	case AESCTR:
		return "aes_ctr"
	case AESXTS:
		return "aes_xts"
	case Ascon:
		return "ascon"
	case ChaCha20:
		return "chacha20"
	}
	return fmt.Sprintf("algorithm(%d)", int(a))
}

// Parse maps a selector name to an Algorithm.
func Parse(name string) (Algorithm, error) {
	switch name {
	case "twister":
		return Twister, nil
	case "isaac":
		return ISAAC, nil
	case "xoshiro256":
		return Xoshiro256, nil
	case "aes_ctr", "aesctr":
		return AESCTR, nil
	case "aes_xts", "aesxts":
		return AESXTS, nil
	case "ascon":
		return Ascon, nil
	case "chacha20":
		return ChaCha20, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Algorithms lists every selector, in presentation order.
func Algorithms() []Algorithm {
	return []Algorithm{Twister, ISAAC, Xoshiro256, AESCTR, AESXTS, Ascon, ChaCha20}
}

// replayable matches the concrete x/ stream types, whose Snapshot returns
// their own type rather than the Stream interface.
type replayable[T any] interface {
	Fill(p []byte)
	Snapshot() T
}

// stream adapts a concrete generator to the Stream interface.
type stream[T replayable[T]] struct {
	inner T
}

func (s stream[T]) Fill(p []byte) { s.inner.Fill(p) }

func (s stream[T]) Snapshot() Stream { return stream[T]{inner: s.inner.Snapshot()} }

// New constructs the selected generator from seed and applies the entropy
// gate to a 512-bit sample drawn from a probe instance: the low 64 bits
// must pass. On success the returned stream is freshly constructed and
// positioned at the start of its keystream; the probe is discarded. On
// gate rejection the generator is never used and ErrGateRejected is
// returned.
func New(alg Algorithm, seed []byte) (Stream, error) {
	probe, err := construct(alg, seed)
	if err != nil {
		return nil, err
	}

	var sample [64]byte
	probe.Fill(sample[:])
	if !Gate(GateSample(sample[:])) {
		return nil, fmt.Errorf("%w (%s)", ErrGateRejected, alg)
	}

	return construct(alg, seed)
}

// construct builds a stream with no gating.
func construct(alg Algorithm, seed []byte) (Stream, error) {
	switch alg {
	case Twister:
		s, err := twister.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*twister.Stream]{inner: s}, nil
	case ISAAC:
		s, err := isaac.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*isaac.Stream]{inner: s}, nil
	case Xoshiro256:
		s, err := xoshiro.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*xoshiro.Stream]{inner: s}, nil
	case AESCTR:
		s, err := aesctr.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*aesctr.Stream]{inner: s}, nil
	case AESXTS:
		s, err := aesxts.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*aesxts.Stream]{inner: s}, nil
	case Ascon:
		s, err := ascon.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*ascon.Stream]{inner: s}, nil
	case ChaCha20:
		s, err := chacha.New(seed)
		if err != nil {
			return nil, err
		}
		return stream[*chacha.Stream]{inner: s}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(alg))
}
