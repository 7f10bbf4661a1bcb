package pipeline

// Reload makes the kernel forget the device's stale partition view:
// BLKRRPART ioctl, partprobe as a second opinion, mapper partition
// removal, a SCSI rescan when the device exposes one, and a udev
// settle. All best-effort; a missing rescan interface is normal for
// NVMe and virtual devices.
func (p *Pipeline) Reload(device string) *StageResult {
	r := newResult("kernel-reload")

	p.step(r, "reread partition table of "+device, func() error {
		return p.Mutator.RereadPartitionTable(device)
	})
	p.step(r, "ran partprobe on "+device, func() error {
		return p.Mutator.Partprobe(device)
	})
	p.step(r, "removed mapper partitions of "+device, func() error {
		return p.Mutator.RemoveMapperPartitions(device)
	})
	p.step(r, "rescanned "+device, func() error {
		return p.Mutator.RescanDevice(device)
	})
	p.step(r, "settled udev", func() error {
		return p.Mutator.SettleUdev()
	})

	return r.finalize()
}
