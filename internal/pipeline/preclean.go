package pipeline

import (
	"github.com/sigreer/diskzap/internal/blockdev"
)

// PreClean releases everything holding the disk: mounts, swap, LVM
// structures, and device-mapper nodes. Every sub-step is best-effort; a
// busy mount or a half-torn-down VG is logged and the pipeline moves
// on, because the eraser's forced overwrite usually succeeds anyway.
func (p *Pipeline) PreClean(disk *blockdev.Disk) *StageResult {
	r := newResult("pre-clean")

	for _, part := range disk.Partitions {
		for _, mp := range part.Mountpoints {
			if mp == "[SWAP]" {
				continue
			}
			mountpoint := mp
			p.step(r, "unmounted "+mountpoint, func() error {
				if err := p.Mutator.UnmountLazy(mountpoint); err == nil {
					return nil
				}
				return p.Mutator.UnmountForce(mountpoint)
			})
		}
	}

	swaps, err := p.Inspector.ActiveSwaps()
	if err != nil {
		r.warnf("listing swaps: %v", err)
	}
	for _, swap := range swaps {
		if blockdev.ParentDisk(swap) != disk.Path && swap != disk.Path {
			continue
		}
		dev := swap
		p.step(r, "disabled swap on "+dev, func() error {
			return p.Mutator.SwapOff(dev)
		})
	}

	pvs, err := p.Inspector.PhysicalVolumesOn(disk.Path)
	if err != nil {
		r.warnf("listing physical volumes: %v", err)
	}
	seenVG := make(map[string]bool)
	for _, pv := range pvs {
		if pv.VG == "" || seenVG[pv.VG] {
			continue
		}
		seenVG[pv.VG] = true
		vg := pv.VG
		p.step(r, "deactivated volume group "+vg, func() error {
			return p.Mutator.DeactivateVolumeGroup(vg)
		})
		p.step(r, "removed logical volumes of "+vg, func() error {
			return p.Mutator.RemoveLogicalVolumes(vg)
		})
		p.step(r, "removed volume group "+vg, func() error {
			return p.Mutator.RemoveVolumeGroup(vg)
		})
	}
	for _, pv := range pvs {
		path := pv.Path
		p.step(r, "removed physical volume "+path, func() error {
			return p.Mutator.RemovePhysicalVolume(path)
		})
	}

	holders, err := p.Inspector.MapperHolders(disk.Path)
	if err != nil {
		r.warnf("listing device-mapper holders: %v", err)
	}
	for _, holder := range holders {
		name := holder
		p.step(r, "removed device-mapper node "+name, func() error {
			return p.Mutator.RemoveMapperNode(name)
		})
	}

	return r.finalize()
}
