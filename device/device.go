// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package device models the block devices the engine erases.
//
// A Context carries a device's identity and geometry, the HPA/DCO findings,
// and the progress block its wipe worker mutates. Ownership is one-way:
// the worker writes the progress fields through atomic stores, the
// supervisor reads them without locks, and nobody else touches them.
package device

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// BusClass identifies the transport a device sits behind.
type BusClass int

// Bus classes, per the enumerator's sysfs classification.
const (
	BusUnknown BusClass = iota
	BusIDE
	BusSCSI
	BusSAS
	BusATA
	BusUSB
	BusNVMe
	BusIEEE1394
	BusVirt
	BusCompaq
)

// String returns the short transport name.
func (b BusClass) String() string {
	switch b {
	case BusIDE:
		return "IDE"
	case BusSCSI:
		return "SCSI"
	case BusSAS:
		return "SAS"
	case BusATA:
		return "ATA"
	case BusUSB:
		return "USB"
	case BusNVMe:
		return "NVMe"
	case BusIEEE1394:
		return "IEEE1394"
	case BusVirt:
		return "VIRT"
	case BusCompaq:
		return "COMPAQ"
	}
	return "unknown"
}

// ATAClass reports whether the bus is expected to honor ATA pass-through,
// making the device a candidate for HPA/DCO probing.
func (b BusClass) ATAClass() bool {
	switch b {
	case BusIDE, BusATA, BusSAS, BusSCSI, BusUSB:
		return true
	}
	return false
}

// HPAStatus is the reconciled host-protected-area finding.
type HPAStatus int

const (
	// HPADisabled means the drive hides nothing.
	HPADisabled HPAStatus = iota

	// HPAEnabled means hidden sectors were found.
	HPAEnabled

	// HPAUnknown means the probe was not forwarded (typically a bridge).
	HPAUnknown

	// HPANotApplicable covers NVMe, virtual, and drives that reject the
	// DCO identify.
	HPANotApplicable

	// HPANotSupported means the device class is never probed.
	HPANotSupported
)

// String returns the status name used in summaries and certificates.
func (h HPAStatus) String() string {
	switch h {
	case HPADisabled:
		return "disabled"
	case HPAEnabled:
		return "enabled"
	case HPAUnknown:
		return "unknown"
	case HPANotApplicable:
		return "not-applicable"
	case HPANotSupported:
		return "not-supported"
	}
	return fmt.Sprintf("hpa(%d)", int(h))
}

// Selection is the supervisor-owned selection state.
type Selection int32

const (
	// Unselected devices are enumerated but not wiped.
	Unselected Selection = iota

	// Selected devices get a worker.
	Selected

	// Disabled devices failed a pre-wipe check; they are reported and
	// skipped.
	Disabled
)

// WipeStatus is the worker lifecycle state.
type WipeStatus int32

const (
	NotStarted WipeStatus = iota
	Running
	Completed
)

// Context is one enumerated device. Identity and geometry fields are
// written at enumeration and probe time, before any worker exists;
// Progress is the shared block described in the package comment.
type Context struct {
	// Path is the block-device node, e.g. /dev/sdc.
	Path string

	// Model and Serial come from sysfs; Serial is anonymized in quiet
	// mode.
	Model  string
	Serial string

	// LogicalSectorSize and PhysicalSectorSize are the device's reported
	// sector geometry, in bytes.
	LogicalSectorSize  uint32
	PhysicalSectorSize uint32

	// Size is the OS-reported capacity in bytes.
	Size uint64

	Bus BusClass
	SSD bool

	// HPA findings, populated by the prober.
	HPA               HPAStatus
	HPAReportedSet    uint64
	HPAReportedReal   uint64
	DCORealMaxSectors uint64

	// RealMaxBytes is the reconciled true capacity; the wipe target.
	RealMaxBytes uint64

	// Selection is owned by the supervisor.
	Selection Selection

	Progress Progress
}

// Progress is the per-device block shared between a worker and the
// supervisor. Counters wide enough to need atomicity use atomic types;
// the worker is the only writer.
type Progress struct {
	// Pass and Round are one-based positions in the schedule.
	Pass  atomic.Int32
	Round atomic.Int32

	// RoundSize is the progress denominator in bytes, fixed before the
	// worker starts.
	RoundSize uint64

	// BytesErased counts bytes transferred so far; never exceeds
	// RoundSize.
	BytesErased atomic.Uint64

	PassErrors   atomic.Uint64
	VerifyErrors atomic.Uint64
	FsyncErrors  atomic.Uint64

	Status atomic.Int32

	// StartTime and EndTime are Unix nanoseconds.
	StartTime atomic.Int64
	EndTime   atomic.Int64

	// Result is the worker exit code: 0 success, positive non-fatal
	// error count, negative fatal.
	Result atomic.Int32

	// Signal records the cancellation signal, if any.
	Signal atomic.Int32
}

// TotalErrors sums the three error counters.
func (p *Progress) TotalErrors() uint64 {
	return p.PassErrors.Load() + p.VerifyErrors.Load() + p.FsyncErrors.Load()
}

// HiddenSectors returns the HPA size in sectors: the gap between the
// reconciled capacity and the OS-reported capacity, or 0 unless the HPA
// is enabled.
func (c *Context) HiddenSectors() uint64 {
	if c.HPA != HPAEnabled || c.LogicalSectorSize == 0 || c.RealMaxBytes <= c.Size {
		return 0
	}
	return (c.RealMaxBytes - c.Size) / uint64(c.LogicalSectorSize)
}

// HiddenSizeText renders the hidden area in IEC units for summaries and
// certificates.
func (c *Context) HiddenSizeText() string {
	if c.HPA != HPAEnabled || c.RealMaxBytes <= c.Size {
		return "0 B"
	}
	return humanize.IBytes(c.RealMaxBytes - c.Size)
}

// AnonymizedSerial masks all but the last four characters, for quiet
// mode output.
func AnonymizedSerial(serial string) string {
	s := strings.TrimSpace(serial)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
