// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package ata

import (
	"encoding/binary"
)

// RawProbe holds the three sector counts the HPA/DCO probes return before
// reconciliation. Zero values mean the corresponding probe failed or was
// not forwarded.
type RawProbe struct {
	// HPASet is the drive's current max sector count from IDENTIFY
	// DEVICE.
	HPASet uint64

	// HPAReal is the native max sector count from READ NATIVE MAX
	// ADDRESS (EXT).
	HPAReal uint64

	// DCOMax is the real max sector count from DEVICE CONFIGURATION
	// IDENTIFY.
	DCOMax uint64
}

// cdb16 builds an ATA PASS-THROUGH (16) CDB.
func cdb16(protocol byte, extend bool, flags2, features, count, device, command byte) [16]byte {
	var cdb [16]byte
	cdb[0] = opPassThrough16
	cdb[1] = protocol << 1
	if extend {
		cdb[1] |= 1
	}
	cdb[2] = flags2
	cdb[4] = features
	cdb[6] = count
	cdb[13] = device
	cdb[14] = command
	return cdb
}

// Probe runs the three probes against an open device descriptor. Probe
// failures are encoded in the returned RawProbe rather than as errors:
// a transport that refuses ATA pass-through yields the (set=0, real=1)
// signature reconciliation maps to "unknown".
func Probe(fd int) RawProbe {
	var raw RawProbe

	if set, err := identifyMaxSectors(fd); err == nil {
		raw.HPASet = set
	} else {
		raw.HPAReal = 1
		return raw
	}

	if real, err := readNativeMax(fd); err == nil {
		raw.HPAReal = real
	}

	if dco, err := dcoIdentify(fd); err == nil {
		raw.DCOMax = dco
	}

	return raw
}

// identifyMaxSectors issues IDENTIFY DEVICE (0xEC) and returns the
// drive's current max sector count: words 100-103 (LBA48) when valid,
// else words 60-61 (LBA28).
func identifyMaxSectors(fd int) (uint64, error) {
	data := make([]byte, 512)
	// 85 08 0E 00 00 00 01 00 00 00 00 00 00 40 EC 00
	cdb := cdb16(protoPIOIn, false, 0x0E, 0, 1, 0x40, 0xEC)
	res, err := passThrough(fd, cdb, data, sgDxferFromDev)
	if err != nil {
		return 0, err
	}
	if !res.ok() {
		return 0, ErrPassThrough
	}

	lba48 := binary.LittleEndian.Uint64(data[100*2 : 100*2+8])
	if lba48 != 0 {
		return lba48 & 0xFFFFFFFFFFFF, nil
	}
	lba28 := uint64(binary.LittleEndian.Uint32(data[60*2 : 60*2+4]))
	return lba28, nil
}

// readNativeMax issues READ NATIVE MAX ADDRESS EXT (0x27) and decodes the
// returned LBA from the ATA Status Return sense descriptor. The result is
// the native max sector count (the returned address plus one).
func readNativeMax(fd int) (uint64, error) {
	cdb := cdb16(protoNonData, true, ckCond, 0, 0, 0x40, 0x27)
	res, err := passThrough(fd, cdb, nil, sgDxferNone)
	if err != nil {
		return 0, err
	}
	lba, ok := ataRegisters(res.sense[:res.senseN])
	if !ok {
		return 0, ErrPassThrough
	}
	return lba + 1, nil
}

// dcoIdentify issues DEVICE CONFIGURATION IDENTIFY (command 0xB1,
// features 0xC2) and returns the DCO-reported real max sector count:
// bytes 6-13 of the 512-byte block, little-endian, plus one when
// nonzero.
func dcoIdentify(fd int) (uint64, error) {
	data := make([]byte, 512)
	// 85 08 0E 00 C2 00 01 00 00 00 00 00 00 40 B1 00
	cdb := cdb16(protoPIOIn, false, 0x0E, 0xC2, 1, 0x40, 0xB1)
	res, err := passThrough(fd, cdb, data, sgDxferFromDev)
	if err != nil {
		return 0, err
	}
	if !res.ok() {
		// Modern enterprise drives reject DCO; the sense is decoded for
		// logging only, never acted on.
		return 0, ErrPassThrough
	}

	max := binary.LittleEndian.Uint64(data[6:14])
	if max != 0 {
		max++
	}
	return max, nil
}
