// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package device

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOMode selects how the device file is opened.
type IOMode int

const (
	// IOAuto tries direct I/O and falls back to cached on refusal.
	IOAuto IOMode = iota

	// IODirect requires O_DIRECT; refusal is fatal for the device.
	IODirect

	// IOCached uses the page cache.
	IOCached
)

// ErrUnknownIOMode is returned for an unrecognized io-mode selector.
var ErrUnknownIOMode = errors.New("device: unknown io mode")

// ParseIOMode maps a selector name to an IOMode.
func ParseIOMode(name string) (IOMode, error) {
	switch name {
	case "auto":
		return IOAuto, nil
	case "direct":
		return IODirect, nil
	case "cached":
		return IOCached, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIOMode, name)
}

// String returns the selector name.
func (m IOMode) String() string {
	switch m {
	case IODirect:
		return "direct"
	case IOCached:
		return "cached"
	default:
		return "auto"
	}
}

var (
	// ErrSizeDisagreement is returned when the end-of-device seek and the
	// size ioctl disagree; writing a device whose size is ambiguous risks
	// missing its tail.
	ErrSizeDisagreement = errors.New("device: seek and ioctl size disagree")

	// ErrNotErasable is returned for paths that are neither block devices
	// nor regular files.
	ErrNotErasable = errors.New("device: not a block device or regular file")
)

// Handle is an open device, owned exclusively by one worker.
type Handle struct {
	f      *os.File
	path   string
	direct bool
	sync   bool
	block  bool
}

// Open opens the path read-write under the requested I/O mode. everyBlock
// requests O_SYNC semantics, the every_block sync policy.
func Open(path string, mode IOMode, everyBlock bool) (*Handle, error) {
	flags := unix.O_RDWR
	if everyBlock {
		flags |= unix.O_SYNC
	}

	direct := mode == IODirect || mode == IOAuto
	if direct {
		fd, err := unix.Open(path, flags|unix.O_DIRECT, 0)
		if err == nil {
			return newHandle(fd, path, true, everyBlock)
		}
		if mode == IODirect {
			return nil, fmt.Errorf("device: open %s with O_DIRECT: %w", path, err)
		}
		// IOAuto falls through to a cached open.
	}

	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return newHandle(fd, path, false, everyBlock)
}

func newHandle(fd int, path string, direct, sync bool) (*Handle, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("device: stat %s: %w", path, err)
	}
	typ := st.Mode & unix.S_IFMT
	if typ != unix.S_IFBLK && typ != unix.S_IFREG {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s", ErrNotErasable, path)
	}
	return &Handle{
		f:      os.NewFile(uintptr(fd), path),
		path:   path,
		direct: direct,
		sync:   sync,
		block:  typ == unix.S_IFBLK,
	}, nil
}

// Reopen drops O_DIRECT and reopens the device cached, preserving the
// sync flag. Used by the auto io-mode downgrade after the first write is
// refused.
func (h *Handle) Reopen() error {
	nh, err := Open(h.path, IOCached, h.sync)
	if err != nil {
		return err
	}
	_ = h.f.Close()
	*h = *nh
	return nil
}

// Path returns the device path.
func (h *Handle) Path() string { return h.path }

// Direct reports whether the handle uses O_DIRECT.
func (h *Handle) Direct() bool { return h.direct }

// Block reports whether the handle is a block device (as opposed to an
// image file).
func (h *Handle) Block() bool { return h.block }

// Fd returns the raw descriptor, for pass-through ioctls.
func (h *Handle) Fd() int { return int(h.f.Fd()) }

// File returns the underlying file.
func (h *Handle) File() *os.File { return h.f }

// Close releases the descriptor.
func (h *Handle) Close() error { return h.f.Close() }

// Datasync flushes written data to the medium.
func (h *Handle) Datasync() error {
	return unix.Fdatasync(h.Fd())
}

// Geometry resolves the device size by both an end-of-device seek and the
// 64-bit size ioctl, requiring agreement, plus the logical and physical
// sector sizes. Regular files report 512-byte sectors.
func (h *Handle) Geometry() (size uint64, logical, physical uint32, err error) {
	end, err := h.f.Seek(0, 2)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("device: seek end %s: %w", h.path, err)
	}
	if _, err = h.f.Seek(0, 0); err != nil {
		return 0, 0, 0, fmt.Errorf("device: rewind %s: %w", h.path, err)
	}

	if !h.block {
		return uint64(end), 512, 512, nil
	}

	var bytes uint64
	if err = ioctlPtr(h.Fd(), unix.BLKGETSIZE64, unsafe.Pointer(&bytes)); err != nil {
		return 0, 0, 0, fmt.Errorf("device: BLKGETSIZE64 %s: %w", h.path, err)
	}
	if bytes != uint64(end) {
		return 0, 0, 0, fmt.Errorf("%w: %s seek=%d ioctl=%d", ErrSizeDisagreement, h.path, end, bytes)
	}

	var lss, pbs int32
	if err = ioctlPtr(h.Fd(), unix.BLKSSZGET, unsafe.Pointer(&lss)); err != nil {
		return 0, 0, 0, fmt.Errorf("device: BLKSSZGET %s: %w", h.path, err)
	}
	if err = ioctlPtr(h.Fd(), unix.BLKPBSZGET, unsafe.Pointer(&pbs)); err != nil {
		// Older kernels lack BLKPBSZGET; fall back to the logical size.
		pbs = lss
	}

	return bytes, uint32(lss), uint32(pbs), nil
}

// ioctlPtr issues a pointer-argument ioctl.
func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// AlignedBuffer returns a buffer of the given size whose base address is
// aligned for direct I/O.
func AlignedBuffer(size, align int) []byte {
	if align <= 1 {
		return make([]byte, size)
	}
	raw := make([]byte, size+align)
	off := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1))
	if off != 0 {
		off = align - off
	}
	return raw[off : off+size : off+size]
}
