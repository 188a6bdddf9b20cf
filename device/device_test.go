// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for the device layer: image-file geometry, aligned buffers,
// serial anonymization, hidden-area accounting.

package device

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_Device_OpenImageGeometry verifies a regular file opens cached and
// reports its byte size with 512-byte sector geometry.
func Test_Device_OpenImageGeometry(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	path := filepath.Join(t.TempDir(), "img")
	require.NoError(t, os.WriteFile(path, make([]byte, 12345), 0o600))

	h, err := Open(path, IOCached, false)
	is.NoError(err)
	defer func() { _ = h.Close() }()

	is.False(h.Block())
	size, lss, pbs, err := h.Geometry()
	is.NoError(err)
	is.Equal(uint64(12345), size)
	is.Equal(uint32(512), lss)
	is.Equal(uint32(512), pbs)
}

// Test_Device_OpenMissing verifies open failure surfaces as an error.
func Test_Device_OpenMissing(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := Open(filepath.Join(t.TempDir(), "nope"), IOCached, false)
	is.Error(err)
}

// Test_Device_OpenRejectsOddNodes verifies non-block, non-regular paths
// are refused.
func Test_Device_OpenRejectsOddNodes(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	_, err := Open("/dev/null", IOCached, false)
	is.ErrorIs(err, ErrNotErasable)
}

// Test_Device_ParseIOMode verifies the io-mode selectors.
func Test_Device_ParseIOMode(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	for _, m := range []IOMode{IOAuto, IODirect, IOCached} {
		got, err := ParseIOMode(m.String())
		is.NoError(err)
		is.Equal(m, got)
	}

	_, err := ParseIOMode("mmap")
	is.ErrorIs(err, ErrUnknownIOMode)
}

// Test_Device_AlignedBuffer verifies base-address alignment for direct
// I/O buffers.
func Test_Device_AlignedBuffer(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	for _, align := range []int{512, 4096} {
		buf := AlignedBuffer(1<<16, align)
		is.Len(buf, 1<<16)
		is.Zero(uintptr(unsafe.Pointer(&buf[0])) & uintptr(align-1))
	}

	is.Len(AlignedBuffer(64, 1), 64)
}

// Test_Device_AnonymizedSerial verifies quiet-mode masking keeps only
// the tail.
func Test_Device_AnonymizedSerial(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.Equal("*******Z1A4", AnonymizedSerial("WD-WCC4Z1A4"))
	is.Equal("***", AnonymizedSerial("abc"))
	is.Equal("", AnonymizedSerial(""))
}

// Test_Device_HiddenAccounting verifies hidden-sector math is zero
// unless the HPA is enabled.
func Test_Device_HiddenAccounting(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	c := &Context{Size: 1 << 20, LogicalSectorSize: 512, RealMaxBytes: 2 << 20, HPA: HPADisabled}
	is.Zero(c.HiddenSectors())
	is.Equal("0 B", c.HiddenSizeText())

	c.HPA = HPAEnabled
	is.Equal(uint64(2048), c.HiddenSectors())
	is.Equal("1.0 MiB", c.HiddenSizeText())
}

// Test_Device_BusClass verifies names and the ATA-probe eligibility
// partition.
func Test_Device_BusClass(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.True(BusATA.ATAClass())
	is.True(BusUSB.ATAClass())
	is.False(BusNVMe.ATAClass())
	is.False(BusVirt.ATAClass())
	is.Equal("NVMe", BusNVMe.String())
	is.Equal("unknown", BusUnknown.String())
}
