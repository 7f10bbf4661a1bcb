package blockdev

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Enumerator lists block devices via lsblk.
type Enumerator struct{}

// lsblkOutput represents the JSON output from lsblk
type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice represents a single device in lsblk output
type lsblkDevice struct {
	Name        string        `json:"name"`
	Kname       string        `json:"kname"`
	Path        string        `json:"path"`
	Type        string        `json:"type"`
	Size        int64         `json:"size"`
	Model       string        `json:"model"`
	Serial      string        `json:"serial"`
	Tran        string        `json:"tran"`
	FSType      string        `json:"fstype"`
	Mountpoints []string      `json:"mountpoints"`
	Children    []lsblkDevice `json:"children,omitempty"`
}

// List returns the whole disks currently known to the kernel, with their
// partitions as children. A missing or failing lsblk yields an empty list
// and an error; callers treat that as "no matches", not a hard stop.
func (e *Enumerator) List() ([]Disk, error) {
	cmd := exec.Command("lsblk", "-J", "-b", "-o",
		"NAME,KNAME,PATH,TYPE,SIZE,MODEL,SERIAL,TRAN,FSTYPE,MOUNTPOINTS")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("lsblk failed: %w", err)
	}

	var output lsblkOutput
	if err := json.Unmarshal(out, &output); err != nil {
		return nil, fmt.Errorf("parsing lsblk output: %w", err)
	}

	var disks []Disk
	for _, dev := range output.Blockdevices {
		if dev.Type != "disk" && dev.Type != "mpath" {
			continue
		}
		disks = append(disks, toDisk(dev))
	}
	return disks, nil
}

func toDisk(dev lsblkDevice) Disk {
	d := Disk{
		Path:      dev.Path,
		Name:      dev.Kname,
		Type:      dev.Type,
		Size:      dev.Size,
		Model:     strings.TrimSpace(dev.Model),
		Serial:    strings.TrimSpace(dev.Serial),
		Transport: dev.Tran,
	}
	for _, child := range dev.Children {
		d.Partitions = append(d.Partitions, collectPartitions(child)...)
	}
	return d
}

// collectPartitions flattens a child subtree into partitions. Nested
// children (e.g. LVM LVs stacked on a partition) contribute their
// mountpoints to the partition that backs them, so the pre-clean stage
// sees every mount that pins the disk.
func collectPartitions(dev lsblkDevice) []Partition {
	p := Partition{
		Path:   dev.Path,
		Name:   dev.Kname,
		FSType: dev.FSType,
		Size:   dev.Size,
	}
	for _, mp := range dev.Mountpoints {
		if mp != "" {
			p.Mountpoints = append(p.Mountpoints, mp)
		}
	}
	for _, child := range dev.Children {
		for _, nested := range collectPartitions(child) {
			p.Mountpoints = append(p.Mountpoints, nested.Mountpoints...)
		}
	}
	return []Partition{p}
}

// FindRootDisk returns the whole disk hosting the root filesystem, or ""
// if it cannot be determined. Used as the default system-disk protection.
func FindRootDisk() string {
	out, err := exec.Command("lsblk", "-n", "-o", "PATH,MOUNTPOINTS").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if fields[1] == "/" || fields[1] == "/boot" || fields[1] == "/boot/efi" {
			dev := Canonicalize(fields[0])
			if IsMapper(dev) {
				// Root on LVM/crypt: fall back to the first parent disk
				// reported by lsblk -s.
				if parent := firstParentDisk(dev); parent != "" {
					return parent
				}
				continue
			}
			return ParentDisk(dev)
		}
	}
	return ""
}

// firstParentDisk walks lsblk's inverse dependency view to the disk.
func firstParentDisk(path string) string {
	out, err := exec.Command("lsblk", "-n", "-s", "-o", "PATH,TYPE", path).Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 2 && fields[1] == "disk" {
			return fields[0]
		}
	}
	return ""
}
