// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package ata

import (
	"errors"
	"fmt"
)

// Firmware erase support. These commands hand the erase to the drive
// itself; the engine only sequences them and reports the outcome.

// ErrNotSupported is returned when the drive rejects a firmware erase
// command.
var ErrNotSupported = errors.New("ata: firmware erase not supported")

// erasePassword is the throwaway user password set for the duration of a
// SECURITY ERASE UNIT sequence.
var erasePassword = [32]byte{'s', 'c', 'o', 'u', 'r'}

const (
	cmdSecuritySetPassword = 0xF1
	cmdSecurityErasePrep   = 0xF3
	cmdSecurityEraseUnit   = 0xF4
	cmdSanitize            = 0xB4

	// SANITIZE feature codes.
	featCryptoScramble = 0x11
	featBlockErase     = 0x12
	featOverwrite      = 0x14
)

// SecurityErase runs the SECURITY ERASE UNIT sequence: set a throwaway
// user password, prepare, erase. The drive performs the overwrite; the
// call blocks in the kernel until the drive reports completion.
func SecurityErase(fd int, enhanced bool) error {
	if err := securitySetPassword(fd); err != nil {
		return err
	}
	if err := nonData(fd, cmdSecurityErasePrep, 0, 0); err != nil {
		return fmt.Errorf("ata: erase prepare: %w", err)
	}

	out := make([]byte, 512)
	copy(out[2:], erasePassword[:])
	if enhanced {
		out[0] |= 0x02
	}
	cdb := cdb16(protoPIOOut, false, 0x06, 0, 1, 0x40, cmdSecurityEraseUnit)
	res, err := passThrough(fd, cdb, out, sgDxferToDev)
	if err != nil {
		return fmt.Errorf("%w: erase unit", ErrNotSupported)
	}
	if !res.ok() {
		return fmt.Errorf("%w: erase unit rejected", ErrNotSupported)
	}
	return nil
}

// Sanitize issues one of the SANITIZE EXT operations. feature is the
// SANITIZE feature code of the operation, as SanitizeFeature returns it.
func Sanitize(fd int, feature byte) error {
	var key uint64
	switch feature {
	case featCryptoScramble:
		key = 0x43727970 // "Cryp"
	case featBlockErase:
		key = 0x426B4572 // "BkEr"
	case featOverwrite:
		key = 0x4F566572 // "OVer"
	default:
		return fmt.Errorf("ata: unknown sanitize feature %#x", feature)
	}

	var cdb [16]byte
	cdb[0] = opPassThrough16
	cdb[1] = protoNonData<<1 | 1
	cdb[2] = ckCond
	cdb[4] = feature
	// The operation key rides in the LBA field.
	cdb[8] = byte(key)
	cdb[10] = byte(key >> 8)
	cdb[12] = byte(key >> 16)
	cdb[7] = byte(key >> 24)
	cdb[13] = 0x40
	cdb[14] = cmdSanitize

	res, err := passThrough(fd, cdb, nil, sgDxferNone)
	if err != nil {
		return fmt.Errorf("%w: sanitize", ErrNotSupported)
	}
	if !res.ok() {
		return fmt.Errorf("%w: sanitize rejected", ErrNotSupported)
	}
	return nil
}

// SanitizeFeature maps a firmware method name suffix to its feature code.
func SanitizeFeature(kind string) (byte, error) {
	switch kind {
	case "crypto":
		return featCryptoScramble, nil
	case "block":
		return featBlockErase, nil
	case "overwrite":
		return featOverwrite, nil
	}
	return 0, fmt.Errorf("ata: unknown sanitize kind %q", kind)
}

func securitySetPassword(fd int) error {
	out := make([]byte, 512)
	copy(out[2:], erasePassword[:])
	cdb := cdb16(protoPIOOut, false, 0x06, 0, 1, 0x40, cmdSecuritySetPassword)
	res, err := passThrough(fd, cdb, out, sgDxferToDev)
	if err != nil {
		return fmt.Errorf("%w: set password", ErrNotSupported)
	}
	if !res.ok() {
		return fmt.Errorf("%w: set password rejected", ErrNotSupported)
	}
	return nil
}

// nonData issues a register-only command.
func nonData(fd int, command, features, count byte) error {
	cdb := cdb16(protoNonData, false, 0, features, count, 0x40, command)
	res, err := passThrough(fd, cdb, nil, sgDxferNone)
	if err != nil {
		return err
	}
	if !res.ok() {
		return ErrNotSupported
	}
	return nil
}
