// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package ata issues ATA commands through the generic SCSI pass-through
// layer: the HPA/DCO probes that expose hidden capacity, and the firmware
// erase commands (SECURITY ERASE UNIT, SANITIZE).
package ata

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	sgIO = 0x2285

	sgDxferNone    = -1
	sgDxferToDev   = -2
	sgDxferFromDev = -3

	senseLen  = 32
	sgTimeout = 60_000 // milliseconds

	// ATA PASS-THROUGH (16) opcode and protocol fields.
	opPassThrough16 = 0x85
	protoNonData    = 3
	protoPIOIn      = 4
	protoPIOOut     = 5

	// ckCond asks the target to return the ATA register file in the
	// sense data even on success.
	ckCond = 0x20
)

// ErrPassThrough is returned when the pass-through transport itself
// rejects the command; callers treat it as "bridge did not forward".
var ErrPassThrough = errors.New("ata: pass-through rejected")

// sgIoHdr mirrors struct sg_io_hdr from <scsi/sg.h>.
type sgIoHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         unsafe.Pointer
	cmdp           unsafe.Pointer
	sbp            unsafe.Pointer
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         unsafe.Pointer
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// result carries the transport outcome of one pass-through command.
type result struct {
	sense  [senseLen]byte
	senseN int
	status uint8
	host   uint16
	driver uint16
}

// ok reports whether the command completed without any reported status.
func (r *result) ok() bool {
	return r.status == 0 && r.host == 0 && r.driver == 0
}

// passThrough submits one 16-byte CDB. data may be nil for non-data
// commands; dir is one of the sgDxfer constants.
func passThrough(fd int, cdb [16]byte, data []byte, dir int32) (*result, error) {
	res := &result{}
	hdr := sgIoHdr{
		interfaceID:    'S',
		dxferDirection: dir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        senseLen,
		cmdp:           unsafe.Pointer(&cdb[0]),
		sbp:            unsafe.Pointer(&res.sense[0]),
		timeout:        sgTimeout,
	}
	if len(data) > 0 {
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = unsafe.Pointer(&data[0])
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), sgIO, uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return nil, fmt.Errorf("%w: %v", ErrPassThrough, errno)
	}

	res.senseN = int(hdr.sbLenWr)
	res.status = hdr.status
	res.host = hdr.hostStatus
	res.driver = hdr.driverStatus
	return res, nil
}

// ataRegisters extracts the ATA Status Return descriptor (09h) from
// descriptor-format sense data, yielding the 48-bit LBA the device
// reported. Returns false when the descriptor is absent.
func ataRegisters(sense []byte) (lba uint64, ok bool) {
	if len(sense) < 8 || sense[0]&0x7f != 0x72 {
		return 0, false
	}
	add := int(sense[7])
	off := 8
	for off+2 <= 8+add && off+2 <= len(sense) {
		dtype := sense[off]
		dlen := int(sense[off+1])
		if dtype == 0x09 && off+2+dlen <= len(sense) && dlen >= 12 {
			d := sense[off : off+2+dlen]
			// lba: d[7] low, d[9] mid, d[11] high; d[6], d[8], d[10]
			// carry the extended bytes.
			lba = uint64(d[7]) | uint64(d[9])<<8 | uint64(d[11])<<16 |
				uint64(d[6])<<24 | uint64(d[8])<<32 | uint64(d[10])<<40
			return lba, true
		}
		off += 2 + dlen
	}
	return 0, false
}
