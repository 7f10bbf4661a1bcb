package pipeline

import (
	"errors"
	"strings"

	"github.com/sigreer/diskzap/internal/blockdev"
	"github.com/sigreer/diskzap/internal/system"
)

// Erase destroys on-disk metadata: RAID superblocks, optional Ceph and
// ZFS signatures, filesystem signatures, the partition table, and then
// a zero-fill of the head and tail of the raw device. Each sub-step
// hits an independent metadata location, so none of them gates the rest.
func (p *Pipeline) Erase(disk *blockdev.Disk) *StageResult {
	r := newResult("erase")

	p.step(r, "zeroed md superblock on "+disk.Path, func() error {
		return p.Mutator.ZeroMDSuperblock(disk.Path)
	})
	for _, part := range disk.Partitions {
		path := part.Path
		p.step(r, "zeroed md superblock on "+path, func() error {
			return p.Mutator.ZeroMDSuperblock(path)
		})
	}

	if p.ZapCeph {
		p.step(r, "zapped ceph volume on "+disk.Path, func() error {
			return p.Mutator.ZapCephVolume(disk.Path)
		})
	}
	if p.ZapZFS {
		p.step(r, "cleared zfs label on "+disk.Path, func() error {
			return p.Mutator.ClearZFSLabel(disk.Path)
		})
	}

	p.step(r, "wiped filesystem signatures on "+disk.Path, func() error {
		return p.Mutator.WipeSignatures(disk.Path)
	})
	p.step(r, "zapped partition table on "+disk.Path, func() error {
		return p.Mutator.ZapPartitionTable(disk.Path)
	})

	p.zeroHeadTail(r, disk)

	p.discard(r, disk.Path)

	return r.finalize()
}

// discard issues a best-effort block discard. Devices without discard
// support are a skip, not a warning.
func (p *Pipeline) discard(r *StageResult, device string) {
	err := p.Mutator.Discard(device)
	switch {
	case err == nil:
		r.steps++
		if p.Mode != Preview {
			p.log().Infof("discarded blocks on %s", device)
		}
	case errors.Is(err, system.ErrToolMissing):
		r.skipf("discarding blocks on %s: tool not installed", device)
	case strings.Contains(err.Error(), "not supported"):
		r.skipf("discarding blocks on %s: not supported", device)
	default:
		r.warnf("discarding blocks on %s: %v", device, err)
	}
}

// zeroHeadTail overwrites the first and last WipeMiB MiB of the device.
// The window is a fixed small constant: large enough to cover every
// superblock and label location the supported formats use (GPT keeps a
// backup header at the end, ZFS keeps two of its four labels there),
// small enough to run in bounded time on any capacity. The tail offset
// is always computed from the live device size.
func (p *Pipeline) zeroHeadTail(r *StageResult, disk *blockdev.Disk) {
	size := disk.Size
	if fresh, err := p.Inspector.DeviceSize(disk.Path); err == nil && fresh > 0 {
		size = fresh
	}
	if size <= 0 {
		r.warnf("zeroing %s: unknown device size", disk.Path)
		return
	}

	wipe := int64(p.WipeMiB) * MiB
	if wipe <= 0 {
		wipe = 10 * MiB
	}
	if wipe > size {
		wipe = size
	}

	p.step(r, "zeroed device head of "+disk.Path, func() error {
		return p.Mutator.ZeroRange(disk.Path, 0, wipe)
	})
	// The last wipe window is zeroed whenever any of it lies beyond the
	// head pass, even when the two windows overlap: the GPT backup
	// header and two of ZFS's four labels live at the device end.
	if size > wipe {
		tail := size - wipe
		p.step(r, "zeroed device tail of "+disk.Path, func() error {
			return p.Mutator.ZeroRange(disk.Path, tail, wipe)
		})
	}
}
