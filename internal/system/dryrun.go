package system

// DryRun is a Mutator that performs no host mutation. Every call emits a
// "would ..." line through the supplied logger, preserving the exact
// ordering a real run would use.
type DryRun struct {
	Log func(format string, args ...any)
}

func (d *DryRun) logf(format string, args ...any) error {
	if d.Log != nil {
		d.Log(format, args...)
	}
	return nil
}

func (d *DryRun) UnmountLazy(mountpoint string) error {
	return d.logf("would unmount (lazy) %s", mountpoint)
}

func (d *DryRun) UnmountForce(mountpoint string) error {
	return d.logf("would unmount (force) %s", mountpoint)
}

func (d *DryRun) SwapOff(device string) error {
	return d.logf("would disable swap on %s", device)
}

func (d *DryRun) DeactivateVolumeGroup(vg string) error {
	return d.logf("would deactivate volume group %s", vg)
}

func (d *DryRun) RemoveLogicalVolumes(vg string) error {
	return d.logf("would remove logical volumes of %s", vg)
}

func (d *DryRun) RemoveVolumeGroup(vg string) error {
	return d.logf("would remove volume group %s", vg)
}

func (d *DryRun) RemovePhysicalVolume(pv string) error {
	return d.logf("would remove physical volume %s", pv)
}

func (d *DryRun) RemoveMapperNode(name string) error {
	return d.logf("would remove device-mapper node %s", name)
}

func (d *DryRun) ZeroMDSuperblock(device string) error {
	return d.logf("would zero md superblock on %s", device)
}

func (d *DryRun) ZapCephVolume(device string) error {
	return d.logf("would zap ceph volume on %s", device)
}

func (d *DryRun) ClearZFSLabel(device string) error {
	return d.logf("would clear zfs label on %s", device)
}

func (d *DryRun) WipeSignatures(device string) error {
	return d.logf("would wipe filesystem signatures on %s", device)
}

func (d *DryRun) ZapPartitionTable(device string) error {
	return d.logf("would zap partition table on %s", device)
}

func (d *DryRun) ZeroRange(device string, offset, length int64) error {
	return d.logf("would zero %d bytes of %s at offset %d", length, device, offset)
}

func (d *DryRun) Discard(device string) error {
	return d.logf("would discard blocks on %s", device)
}

func (d *DryRun) RereadPartitionTable(device string) error {
	return d.logf("would reread partition table of %s", device)
}

func (d *DryRun) Partprobe(device string) error {
	return d.logf("would partprobe %s", device)
}

func (d *DryRun) RemoveMapperPartitions(device string) error {
	return d.logf("would remove mapper partitions of %s", device)
}

func (d *DryRun) RescanDevice(device string) error {
	return d.logf("would rescan %s", device)
}

func (d *DryRun) SettleUdev() error {
	return d.logf("would settle udev")
}
