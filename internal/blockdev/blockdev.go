package blockdev

import (
	"path/filepath"
	"strings"
)

// Disk represents a whole block device as reported by the enumerator.
type Disk struct {
	Path       string      `json:"path"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Size       int64       `json:"size"`
	Model      string      `json:"model,omitempty"`
	Serial     string      `json:"serial,omitempty"`
	Transport  string      `json:"transport,omitempty"`
	Partitions []Partition `json:"partitions,omitempty"`
}

// Partition is a child device of a Disk.
type Partition struct {
	Path        string   `json:"path"`
	Name        string   `json:"name"`
	FSType      string   `json:"fstype,omitempty"`
	Size        int64    `json:"size"`
	Mountpoints []string `json:"mountpoints,omitempty"`
}

// specialPrefixes are device classes that can never be wipe targets:
// optical, loop, ram-backed, and floppy devices.
var specialPrefixes = []string{"loop", "ram", "zram", "sr", "scd", "fd"}

// Canonicalize turns a user-supplied device reference into a canonical
// /dev path. A bare name like "sdb" becomes "/dev/sdb"; symlinks such as
// /dev/disk/by-id/... are resolved to their kernel device.
func Canonicalize(name string) string {
	if name == "" {
		return ""
	}
	path := name
	if !strings.HasPrefix(path, "/") {
		path = "/dev/" + path
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// BaseName returns the kernel name of a device path ("/dev/sdb" -> "sdb").
func BaseName(path string) string {
	return filepath.Base(path)
}

// ParentDisk strips a partition suffix to yield the whole-disk path.
// /dev/sda1 -> /dev/sda, /dev/nvme0n1p2 -> /dev/nvme0n1.
func ParentDisk(path string) string {
	if strings.HasPrefix(path, "/dev/nvme") {
		if idx := strings.LastIndex(path, "p"); idx > 0 {
			if len(path) > idx+1 && path[idx+1] >= '0' && path[idx+1] <= '9' {
				return path[:idx]
			}
		}
		return path
	}
	i := len(path) - 1
	for i >= 0 && path[i] >= '0' && path[i] <= '9' {
		i--
	}
	return path[:i+1]
}

// IsSpecial reports whether the device belongs to a class that is never
// eligible for wiping (optical, loop, ram, floppy).
func IsSpecial(path string) bool {
	name := BaseName(path)
	for _, p := range specialPrefixes {
		if strings.HasPrefix(name, p) {
			rest := name[len(p):]
			if rest == "" || (rest[0] >= '0' && rest[0] <= '9') {
				return true
			}
		}
	}
	return false
}

// IsMapper reports whether the device is a device-mapper node.
func IsMapper(path string) bool {
	name := BaseName(path)
	if strings.HasPrefix(name, "dm-") {
		return true
	}
	return strings.HasPrefix(path, "/dev/mapper/")
}
