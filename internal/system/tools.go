package system

import "os/exec"

// Tool is a resolved external binary.
type Tool struct {
	Path string
}

// Tools holds the optional collaborator binaries found on this host.
// A nil field means the tool is absent; operations backed by it return
// ErrToolMissing instead of failing at invocation time.
type Tools struct {
	Lsblk      *Tool
	Wipefs     *Tool
	Sgdisk     *Tool
	Mdadm      *Tool
	CephVolume *Tool
	Zpool      *Tool
	Dmsetup    *Tool
	Kpartx     *Tool
	Partprobe  *Tool
	Udevadm    *Tool
	Blkdiscard *Tool
	Swapoff    *Tool

	// lvm2 family; packaged together but probed per binary.
	Pvs      *Tool
	Lvchange *Tool
	Vgchange *Tool
	Lvremove *Tool
	Vgremove *Tool
	Pvremove *Tool
}

// Probe resolves every collaborator binary once at startup.
func Probe() *Tools {
	return &Tools{
		Lsblk:      lookup("lsblk"),
		Wipefs:     lookup("wipefs"),
		Sgdisk:     lookup("sgdisk"),
		Mdadm:      lookup("mdadm"),
		CephVolume: lookup("ceph-volume"),
		Zpool:      lookup("zpool"),
		Dmsetup:    lookup("dmsetup"),
		Kpartx:     lookup("kpartx"),
		Partprobe:  lookup("partprobe"),
		Udevadm:    lookup("udevadm"),
		Blkdiscard: lookup("blkdiscard"),
		Swapoff:    lookup("swapoff"),
		Pvs:        lookup("pvs"),
		Lvchange:   lookup("lvchange"),
		Vgchange:   lookup("vgchange"),
		Lvremove:   lookup("lvremove"),
		Vgremove:   lookup("vgremove"),
		Pvremove:   lookup("pvremove"),
	}
}

// Missing returns the names of required tools that were not found.
// lsblk and wipefs are the only hard requirements; everything else
// degrades to skipped sub-steps.
func (t *Tools) Missing() []string {
	var missing []string
	if t.Lsblk == nil {
		missing = append(missing, "lsblk")
	}
	if t.Wipefs == nil {
		missing = append(missing, "wipefs")
	}
	return missing
}

func lookup(name string) *Tool {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil
	}
	return &Tool{Path: path}
}
