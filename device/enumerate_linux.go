// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package device

import (
	"os"
	"path/filepath"
	"strings"
)

// sysBlock is the sysfs block-device root; variable for tests.
var sysBlock = "/sys/block"

// Enumerate lists candidate block devices, classified and filtered. The
// exclusion list holds device paths to skip; noUSB drops USB bridges.
func Enumerate(exclude []string, noUSB bool) ([]*Context, error) {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		excluded[p] = struct{}{}
	}

	var out []*Context
	for _, e := range entries {
		name := e.Name()
		// Skip partitions, loops, and RAM disks; whole disks only.
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") ||
			strings.HasPrefix(name, "zram") || strings.HasPrefix(name, "dm-") ||
			strings.HasPrefix(name, "md") || strings.HasPrefix(name, "sr") {
			continue
		}

		path := "/dev/" + name
		if _, ok := excluded[path]; ok {
			continue
		}

		c := &Context{
			Path:   path,
			Bus:    classify(name),
			SSD:    rotational(name) == "0",
			Model:  sysAttr(name, "device/model"),
			Serial: sysAttr(name, "device/serial"),
		}
		if noUSB && c.Bus == BusUSB {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Describe builds a Context for an explicitly selected path, classifying
// it from sysfs when it names a /dev node.
func Describe(path string) *Context {
	c := &Context{Path: path}
	if !strings.HasPrefix(path, "/dev/") {
		return c
	}
	name := strings.TrimPrefix(path, "/dev/")
	c.Bus = classify(name)
	c.SSD = rotational(name) == "0"
	c.Model = sysAttr(name, "device/model")
	c.Serial = sysAttr(name, "device/serial")
	return c
}

// classify derives the bus class from the device name and its sysfs link.
func classify(name string) BusClass {
	link, _ := os.Readlink(filepath.Join(sysBlock, name))

	switch {
	case strings.HasPrefix(name, "nvme"):
		return BusNVMe
	case strings.HasPrefix(name, "vd"), strings.HasPrefix(name, "xvd"):
		return BusVirt
	case strings.HasPrefix(name, "fw"):
		return BusIEEE1394
	case strings.HasPrefix(name, "hd"):
		return BusIDE
	case strings.HasPrefix(name, "cciss"), strings.HasPrefix(name, "ida"):
		return BusCompaq
	}

	switch {
	case strings.Contains(link, "/usb"):
		return BusUSB
	case strings.Contains(link, "/virtio"):
		return BusVirt
	case strings.Contains(link, "/ata"):
		return BusATA
	case strings.Contains(link, "sas"):
		return BusSAS
	case strings.HasPrefix(name, "sd"):
		return BusSCSI
	}
	return BusUnknown
}

// rotational reads the queue/rotational attribute; "0" marks an SSD.
func rotational(name string) string {
	return sysAttr(name, "queue/rotational")
}

// sysAttr reads and trims one sysfs attribute, or returns "".
func sysAttr(name, attr string) string {
	b, err := os.ReadFile(filepath.Join(sysBlock, name, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
