package system

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/sigreer/diskzap/internal/blockdev"
)

// Gateway is the production Inspector/Mutator backed by system binaries
// and direct syscalls.
type Gateway struct {
	tools *Tools
	enum  *blockdev.Enumerator
}

// NewGateway builds a Gateway over the probed toolset.
func NewGateway(tools *Tools) *Gateway {
	return &Gateway{tools: tools, enum: &blockdev.Enumerator{}}
}

// run executes a tool and wraps failures with its trimmed output.
func run(tool *Tool, args ...string) error {
	if tool == nil {
		return ErrToolMissing
	}
	if out, err := exec.Command(tool.Path, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %s: %w", tool.Path, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// ---- Inspector ----

func (g *Gateway) ListDisks() ([]blockdev.Disk, error) {
	return g.enum.List()
}

func (g *Gateway) Disk(path string) (*blockdev.Disk, error) {
	disks, err := g.enum.List()
	if err != nil {
		return nil, err
	}
	for i := range disks {
		if disks[i].Path == path {
			return &disks[i], nil
		}
	}
	return nil, nil
}

func (g *Gateway) PhysicalVolumesOn(device string) ([]PV, error) {
	if g.tools.Pvs == nil {
		return nil, nil
	}
	out, err := exec.Command(g.tools.Pvs.Path, "--reportformat", "json", "-o", "pv_name,vg_name").Output()
	if err != nil {
		return nil, fmt.Errorf("pvs failed: %w", err)
	}
	report, err := parsePVReport(out)
	if err != nil {
		return nil, err
	}
	var pvs []PV
	for _, pv := range report {
		if blockdev.ParentDisk(pv.Path) == device || pv.Path == device {
			pvs = append(pvs, pv)
		}
	}
	return pvs, nil
}

func (g *Gateway) MapperHolders(device string) ([]string, error) {
	if g.tools.Dmsetup == nil {
		return nil, nil
	}
	out, err := exec.Command(g.tools.Dmsetup.Path, "info", "-c", "--noheadings", "-o", "name").Output()
	if err != nil {
		return nil, fmt.Errorf("dmsetup info failed: %w", err)
	}
	var holders []string
	for _, line := range strings.Split(string(out), "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.Contains(name, "No devices found") {
			continue
		}
		if g.mapperBackedBy(name, device) {
			holders = append(holders, name)
		}
	}
	return holders, nil
}

// mapperBackedBy checks whether dm node name depends on the given disk.
func (g *Gateway) mapperBackedBy(name, device string) bool {
	out, err := exec.Command(g.tools.Dmsetup.Path, "deps", "-o", "devname", name).Output()
	if err != nil {
		return false
	}
	// deps output lists backing devices as "(sdb1) (sdc1)"
	s := string(out)
	for {
		open := strings.Index(s, "(")
		if open < 0 {
			return false
		}
		end := strings.Index(s[open:], ")")
		if end < 0 {
			return false
		}
		dep := "/dev/" + s[open+1:open+end]
		if dep == device || blockdev.ParentDisk(dep) == device {
			return true
		}
		s = s[open+end:]
	}
}

func (g *Gateway) ActiveSwaps() ([]string, error) {
	data, err := os.ReadFile("/proc/swaps")
	if err != nil {
		return nil, err
	}
	var swaps []string
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "/dev/") {
			swaps = append(swaps, blockdev.Canonicalize(fields[0]))
		}
	}
	return swaps, nil
}

// DeviceSize seeks to the end of the block device, which the kernel
// reports as its capacity.
func (g *Gateway) DeviceSize(device string) (int64, error) {
	f, err := os.Open(device)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("sizing %s: %w", device, err)
	}
	return size, nil
}

// ---- Mutator: pre-clean ----

func (g *Gateway) UnmountLazy(mountpoint string) error {
	return unix.Unmount(mountpoint, unix.MNT_DETACH)
}

func (g *Gateway) UnmountForce(mountpoint string) error {
	return unix.Unmount(mountpoint, unix.MNT_FORCE)
}

func (g *Gateway) SwapOff(device string) error {
	return run(g.tools.Swapoff, device)
}

func (g *Gateway) DeactivateVolumeGroup(vg string) error {
	if err := run(g.tools.Lvchange, "-an", vg); err != nil {
		return err
	}
	return run(g.tools.Vgchange, "-an", vg)
}

func (g *Gateway) RemoveLogicalVolumes(vg string) error {
	return run(g.tools.Lvremove, "-f", vg)
}

func (g *Gateway) RemoveVolumeGroup(vg string) error {
	return run(g.tools.Vgremove, "-f", vg)
}

func (g *Gateway) RemovePhysicalVolume(pv string) error {
	return run(g.tools.Pvremove, "-ff", "-y", pv)
}

func (g *Gateway) RemoveMapperNode(name string) error {
	return run(g.tools.Dmsetup, "remove", "--retry", name)
}

// ---- Mutator: erase ----

func (g *Gateway) ZeroMDSuperblock(device string) error {
	return run(g.tools.Mdadm, "--zero-superblock", "--force", device)
}

func (g *Gateway) ZapCephVolume(device string) error {
	return run(g.tools.CephVolume, "lvm", "zap", "--destroy", device)
}

func (g *Gateway) ClearZFSLabel(device string) error {
	return run(g.tools.Zpool, "labelclear", "-f", device)
}

func (g *Gateway) WipeSignatures(device string) error {
	return run(g.tools.Wipefs, "-a", "-f", device)
}

func (g *Gateway) ZapPartitionTable(device string) error {
	return run(g.tools.Sgdisk, "--zap-all", device)
}

// ZeroRange overwrites length bytes at offset with zeros, in 1 MiB
// writes, syncing before close.
func (g *Gateway) ZeroRange(device string, offset, length int64) error {
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	const chunk = 1 << 20
	buf := make([]byte, chunk)
	for length > 0 {
		n := int64(chunk)
		if length < n {
			n = length
		}
		if _, err := f.WriteAt(buf[:n], offset); err != nil {
			return fmt.Errorf("zeroing %s at %d: %w", device, offset, err)
		}
		offset += n
		length -= n
	}
	return f.Sync()
}

func (g *Gateway) Discard(device string) error {
	return run(g.tools.Blkdiscard, "-f", device)
}

// ---- Mutator: kernel reload ----

func (g *Gateway) RereadPartitionTable(device string) error {
	f, err := os.Open(device)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := unix.IoctlRetInt(int(f.Fd()), unix.BLKRRPART); err != nil {
		return fmt.Errorf("BLKRRPART on %s: %w", device, err)
	}
	return nil
}

func (g *Gateway) Partprobe(device string) error {
	return run(g.tools.Partprobe, device)
}

func (g *Gateway) RemoveMapperPartitions(device string) error {
	return run(g.tools.Kpartx, "-d", device)
}

// RescanDevice pokes the SCSI rescan attribute when the device exposes one.
func (g *Gateway) RescanDevice(device string) error {
	name := blockdev.BaseName(device)
	path := "/sys/block/" + name + "/device/rescan"
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no rescan interface for %s", name)
	}
	return os.WriteFile(path, []byte("1\n"), 0200)
}

func (g *Gateway) SettleUdev() error {
	return run(g.tools.Udevadm, "settle")
}
