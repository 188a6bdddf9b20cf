// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package method defines the erasure methods, expands them into pass
// schedules, and computes the byte totals a wipe will transfer.
package method

import (
	"errors"
	"fmt"
)

// Method selects an erasure method.
type Method int

// The method catalog. Pattern methods expand to pass schedules; the
// firmware methods (secure erase, sanitize) are issued by the worker as
// ATA commands through the ata package and expand to no passes.
const (
	DoD522022M Method = iota
	DoDShort
	Gutmann
	OPS2
	IS5Enh
	Bruce7
	BMB
	Random
	Zero
	One
	VerifyZero
	VerifyOne
	SecureErase
	SecureErasePRNGVerify
	SanitizeCryptoErase
	SanitizeBlockErase
	SanitizeOverwrite
)

// Class groups methods by their round-accounting behavior.
type Class int

// Accounting classes. OPS2 and IS5Enh mandate verification of each
// round's final random pass regardless of the configured verify mode.
const (
	ClassDefault Class = iota
	ClassOPS2
	ClassIS5Enh
)

// VerifyMode selects read-back verification policy.
type VerifyMode int

const (
	// VerifyNone performs no read-back.
	VerifyNone VerifyMode = iota

	// VerifyLast reads back the final written pass.
	VerifyLast

	// VerifyAll reads back every written pass.
	VerifyAll
)

var (
	// ErrUnknownMethod is returned for an unrecognized method selector.
	ErrUnknownMethod = errors.New("method: unknown method")

	// ErrUnknownVerify is returned for an unrecognized verify selector.
	ErrUnknownVerify = errors.New("method: unknown verify mode")

	// ErrRounds is returned when rounds < 1.
	ErrRounds = errors.New("method: rounds must be at least 1")
)

var names = map[Method]string{
	DoD522022M:            "dod522022m",
	DoDShort:              "dodshort",
	Gutmann:               "gutmann",
	OPS2:                  "ops2",
	IS5Enh:                "is5enh",
	Bruce7:                "bruce7",
	BMB:                   "bmb",
	Random:                "random",
	Zero:                  "zero",
	One:                   "one",
	VerifyZero:            "verify_zero",
	VerifyOne:             "verify_one",
	SecureErase:           "secure_erase",
	SecureErasePRNGVerify: "secure_erase_prng_verify",
	SanitizeCryptoErase:   "sanitize_crypto_erase",
	SanitizeBlockErase:    "sanitize_block_erase",
	SanitizeOverwrite:     "sanitize_overwrite",
}

// String returns the selector name as accepted by Parse.
func (m Method) String() string {
	if s, ok := names[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Parse maps a selector name to a Method.
func Parse(name string) (Method, error) {
	for m, s := range names {
		if s == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Methods lists every selector, in catalog order.
func Methods() []Method {
	out := make([]Method, 0, len(names))
	for i := DoD522022M; i <= SanitizeOverwrite; i++ {
		out = append(out, i)
	}
	return out
}

// ParseVerify maps a selector name to a VerifyMode.
func ParseVerify(name string) (VerifyMode, error) {
	switch name {
	case "off", "none":
		return VerifyNone, nil
	case "last":
		return VerifyLast, nil
	case "all":
		return VerifyAll, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVerify, name)
}

// String returns the verify selector name.
func (v VerifyMode) String() string {
	switch v {
	case VerifyLast:
		return "last"
	case VerifyAll:
		return "all"
	default:
		return "off"
	}
}

// Class returns the method's accounting class.
func (m Method) Class() Class {
	switch m {
	case OPS2:
		return ClassOPS2
	case IS5Enh:
		return ClassIS5Enh
	default:
		return ClassDefault
	}
}

// Firmware reports whether the method is executed by drive firmware
// rather than by overwrite passes.
func (m Method) Firmware() bool {
	switch m {
	case SecureErase, SecureErasePRNGVerify, SanitizeCryptoErase,
		SanitizeBlockErase, SanitizeOverwrite:
		return true
	}
	return false
}
