// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package ata

import (
	"github.com/sixafter/scour/device"
)

// Sector-count sanity window. Values outside it are firmware bugs: the
// upper bound is 200 TiB of 512-byte sectors.
const (
	minSaneSectors = 1
	maxSaneSectors = 429_496_729_600
)

// sane reports whether a probed sector count is usable.
func sane(sectors uint64) bool {
	return sectors >= minSaneSectors && sectors <= maxSaneSectors
}

// Reconcile classifies the HPA state from the three probed sector counts
// and derives the true capacity in bytes. deviceSize is the OS-reported
// capacity; sectorSize the logical sector size.
//
// The classification collapses the overlapping firmware behaviors into
// one decision order: the bridge signature first, then agreement
// (disabled), then the not-applicable shapes, then disagreement
// (enabled).
func Reconcile(raw RawProbe, deviceSize uint64, sectorSize uint32) (device.HPAStatus, uint64) {
	if sectorSize == 0 {
		sectorSize = 512
	}
	deviceSectors := deviceSize / uint64(sectorSize)
	set, real, dco := raw.HPASet, raw.HPAReal, raw.DCOMax

	status := classify(set, real, dco, deviceSectors)
	if status == device.HPAUnknown {
		// The (0, 1) bridge signature carries no capacity information.
		return status, deviceSize
	}

	realMax := realMaxBytes(set, real, dco, deviceSize, sectorSize)
	if realMax < deviceSize {
		// A drive is never smaller than the OS view of it.
		realMax = deviceSize
	}
	return status, realMax
}

func classify(set, real, dco, deviceSectors uint64) device.HPAStatus {
	// A bridge that did not forward the pass-through.
	if set == 0 && real == 1 {
		return device.HPAUnknown
	}

	// Full agreement, or DCO agreeing with either the current max or the
	// OS view: nothing hidden.
	if set != 0 && set == real && real == dco {
		return device.HPADisabled
	}
	if dco != 0 && set == dco {
		return device.HPADisabled
	}
	if dco != 0 && dco == deviceSectors {
		return device.HPADisabled
	}

	// Drives that reject DCO outright.
	if set == real && dco == 0 {
		return device.HPANotApplicable
	}
	if set > 1 && dco < 2 {
		return device.HPANotApplicable
	}

	if dco > 0 && dco != deviceSectors {
		return device.HPAEnabled
	}
	if set != dco && set != 0 {
		return device.HPAEnabled
	}

	return device.HPANotApplicable
}

// realMaxBytes picks the best capacity estimate: a sane DCO figure wins,
// then the native max, then the current max, then the OS view.
func realMaxBytes(set, real, dco, deviceSize uint64, sectorSize uint32) uint64 {
	ss := uint64(sectorSize)
	switch {
	case sane(dco):
		return dco * ss
	case sane(real):
		return real * ss
	case sane(set):
		return set * ss
	}
	return deviceSize
}
