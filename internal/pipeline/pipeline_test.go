package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskzap/internal/blockdev"
	"github.com/sigreer/diskzap/internal/pipeline"
	"github.com/sigreer/diskzap/internal/resolve"
	"github.com/sigreer/diskzap/internal/system"
)

// fakeInspector serves canned block-device state.
type fakeInspector struct {
	disks   map[string]*blockdev.Disk
	swaps   []string
	pvs     map[string][]system.PV
	holders map[string][]string
	sizes   map[string]int64
}

func (f *fakeInspector) ListDisks() ([]blockdev.Disk, error) {
	var out []blockdev.Disk
	for _, d := range f.disks {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeInspector) Disk(path string) (*blockdev.Disk, error) {
	return f.disks[path], nil
}

func (f *fakeInspector) PhysicalVolumesOn(device string) ([]system.PV, error) {
	return f.pvs[device], nil
}

func (f *fakeInspector) MapperHolders(device string) ([]string, error) {
	return f.holders[device], nil
}

func (f *fakeInspector) ActiveSwaps() ([]string, error) {
	return f.swaps, nil
}

func (f *fakeInspector) DeviceSize(device string) (int64, error) {
	if size, ok := f.sizes[device]; ok {
		return size, nil
	}
	return 0, fmt.Errorf("unknown device %s", device)
}

// fakeMutator records every destructive call in order.
type fakeMutator struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (f *fakeMutator) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failOn != nil {
		if err, ok := f.failOn[call]; ok {
			return err
		}
	}
	return nil
}

func (f *fakeMutator) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeMutator) UnmountLazy(mp string) error   { return f.record("unmount-lazy " + mp) }
func (f *fakeMutator) UnmountForce(mp string) error  { return f.record("unmount-force " + mp) }
func (f *fakeMutator) SwapOff(dev string) error      { return f.record("swapoff " + dev) }
func (f *fakeMutator) DeactivateVolumeGroup(vg string) error {
	return f.record("vg-deactivate " + vg)
}
func (f *fakeMutator) RemoveLogicalVolumes(vg string) error { return f.record("lv-remove " + vg) }
func (f *fakeMutator) RemoveVolumeGroup(vg string) error    { return f.record("vg-remove " + vg) }
func (f *fakeMutator) RemovePhysicalVolume(pv string) error { return f.record("pv-remove " + pv) }
func (f *fakeMutator) RemoveMapperNode(name string) error   { return f.record("dm-remove " + name) }
func (f *fakeMutator) ZeroMDSuperblock(dev string) error    { return f.record("md-zero " + dev) }
func (f *fakeMutator) ZapCephVolume(dev string) error       { return f.record("ceph-zap " + dev) }
func (f *fakeMutator) ClearZFSLabel(dev string) error       { return f.record("zfs-clear " + dev) }
func (f *fakeMutator) WipeSignatures(dev string) error      { return f.record("wipefs " + dev) }
func (f *fakeMutator) ZapPartitionTable(dev string) error   { return f.record("sgdisk " + dev) }
func (f *fakeMutator) ZeroRange(dev string, offset, length int64) error {
	return f.record(fmt.Sprintf("zero %s %d %d", dev, offset, length))
}
func (f *fakeMutator) Discard(dev string) error             { return f.record("discard " + dev) }
func (f *fakeMutator) RereadPartitionTable(dev string) error { return f.record("rrpart " + dev) }
func (f *fakeMutator) Partprobe(dev string) error           { return f.record("partprobe " + dev) }
func (f *fakeMutator) RemoveMapperPartitions(dev string) error {
	return f.record("kpartx-d " + dev)
}
func (f *fakeMutator) RescanDevice(dev string) error { return f.record("rescan " + dev) }
func (f *fakeMutator) SettleUdev() error             { return f.record("udev-settle") }

// recordLogger captures pipeline log lines.
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) Infof(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Warnf(format string, args ...any) {
	l.Infof(format, args...)
}

func (l *recordLogger) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

type approveAll struct{}

func (approveAll) Confirm(resolve.Target) (bool, error) { return true, nil }

type declineAll struct{}

func (declineAll) Confirm(resolve.Target) (bool, error) { return false, nil }

const testSize = 100 << 20 // 100 MiB

func testDisk(mounts ...string) *blockdev.Disk {
	d := &blockdev.Disk{
		Path: "/dev/sdb",
		Name: "sdb",
		Type: "disk",
		Size: testSize,
	}
	for i, mp := range mounts {
		d.Partitions = append(d.Partitions, blockdev.Partition{
			Path:        fmt.Sprintf("/dev/sdb%d", i+1),
			Name:        fmt.Sprintf("sdb%d", i+1),
			Mountpoints: []string{mp},
		})
	}
	return d
}

func testPipeline(insp *fakeInspector, mut system.Mutator) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Inspector: insp,
		Mutator:   mut,
		Logger:    &recordLogger{},
		Mode:      pipeline.Auto,
		WipeMiB:   10,
	}
}

func target() resolve.Target {
	return resolve.Target{Path: "/dev/sdb", Name: "sdb", Size: testSize}
}

func TestRunFullPipeline(t *testing.T) {
	disk := testDisk("/mnt/a", "/mnt/b")
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
		pvs:   map[string][]system.PV{"/dev/sdb": {{Path: "/dev/sdb1", VG: "vgdata"}}},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	outcomes := p.Run(context.Background(), []resolve.Target{target()}, nil)
	require.Len(t, outcomes, 1)
	assert.Equal(t, pipeline.OutcomeProcessed, outcomes[0].Status)

	// Both mounts released, LVM torn down in order, metadata erased,
	// kernel reloaded.
	assert.Equal(t, 2, mut.called("unmount-lazy"))
	assert.Equal(t, 1, mut.called("vg-deactivate"))
	assert.Equal(t, 1, mut.called("lv-remove"))
	assert.Equal(t, 1, mut.called("vg-remove"))
	assert.Equal(t, 1, mut.called("pv-remove"))
	assert.Equal(t, 1, mut.called("wipefs /dev/sdb"))
	assert.Equal(t, 1, mut.called("sgdisk /dev/sdb"))
	assert.Equal(t, 1, mut.called("rrpart /dev/sdb"))
	// md superblock zeroed on the disk and both partitions.
	assert.Equal(t, 3, mut.called("md-zero"))
	// Ceph and ZFS zaps stay off unless asked for.
	assert.Equal(t, 0, mut.called("ceph-zap"))
	assert.Equal(t, 0, mut.called("zfs-clear"))
}

func TestBusyUnmountStillReachesEraser(t *testing.T) {
	disk := testDisk("/mnt/busy", "/mnt/ok")
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{failOn: map[string]error{
		"unmount-lazy /mnt/busy":  fmt.Errorf("target is busy"),
		"unmount-force /mnt/busy": fmt.Errorf("target is busy"),
	}}
	p := testPipeline(insp, mut)

	outcomes := p.Run(context.Background(), []resolve.Target{target()}, nil)
	require.Len(t, outcomes, 1)
	assert.Equal(t, pipeline.OutcomeProcessed, outcomes[0].Status)
	assert.NotEmpty(t, outcomes[0].Warnings())

	// The failed unmount is a warning, not a stop: the eraser still ran.
	assert.Equal(t, 1, mut.called("wipefs /dev/sdb"))
	assert.Equal(t, 1, mut.called("unmount-lazy /mnt/ok"))
}

func TestEraseHeadTailOffsets(t *testing.T) {
	disk := testDisk()
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	p.Erase(disk)

	wipe := int64(10) * pipeline.MiB
	assert.Equal(t, 1, mut.called(fmt.Sprintf("zero /dev/sdb 0 %d", wipe)))
	assert.Equal(t, 1, mut.called(fmt.Sprintf("zero /dev/sdb %d %d", testSize-wipe, wipe)))
}

func TestEraseTinyDeviceOnlyHead(t *testing.T) {
	disk := testDisk()
	disk.Size = 4 << 20
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": 4 << 20},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	p.Erase(disk)

	// The whole device fits in one wipe window; no tail pass.
	assert.Equal(t, 1, mut.called("zero /dev/sdb"))
	assert.Equal(t, 1, mut.called(fmt.Sprintf("zero /dev/sdb 0 %d", int64(4<<20))))
}

func TestEraseShortDeviceTailStillZeroed(t *testing.T) {
	// 15 MiB device, 10 MiB window: the tail pass overlaps the head
	// pass but must still cover the final bytes, where the GPT backup
	// header lives.
	const size = 15 << 20
	disk := testDisk()
	disk.Size = size
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": size},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	p.Erase(disk)

	wipe := int64(10) * pipeline.MiB
	assert.Equal(t, 1, mut.called(fmt.Sprintf("zero /dev/sdb 0 %d", wipe)))
	assert.Equal(t, 1, mut.called(fmt.Sprintf("zero /dev/sdb %d %d", size-wipe, wipe)))
}

func TestEraseOptionalZaps(t *testing.T) {
	disk := testDisk()
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)
	p.ZapCeph = true
	p.ZapZFS = true

	p.Erase(disk)

	assert.Equal(t, 1, mut.called("ceph-zap /dev/sdb"))
	assert.Equal(t, 1, mut.called("zfs-clear /dev/sdb"))
}

func TestPreviewMutatesNothing(t *testing.T) {
	disks := map[string]*blockdev.Disk{}
	sizes := map[string]int64{}
	var targets []resolve.Target
	for _, name := range []string{"sdb", "sdc", "sdd"} {
		d := &blockdev.Disk{Path: "/dev/" + name, Name: name, Type: "disk", Size: testSize}
		d.Partitions = []blockdev.Partition{{
			Path:        "/dev/" + name + "1",
			Mountpoints: []string{"/mnt/" + name},
		}}
		disks[d.Path] = d
		sizes[d.Path] = testSize
		targets = append(targets, resolve.Target{Path: d.Path, Name: name, Size: testSize})
	}
	insp := &fakeInspector{disks: disks, sizes: sizes}

	log := &recordLogger{}
	var dryLines []string
	p := &pipeline.Pipeline{
		Inspector: insp,
		Mutator: &system.DryRun{Log: func(format string, args ...any) {
			dryLines = append(dryLines, fmt.Sprintf(format, args...))
		}},
		Logger:  log,
		Mode:    pipeline.Preview,
		WipeMiB: 10,
	}

	outcomes := p.Run(context.Background(), targets, nil)
	require.Len(t, outcomes, 3)
	for _, out := range outcomes {
		assert.Equal(t, pipeline.OutcomePreviewed, out.Status)
		assert.Nil(t, out.Report)
	}

	// One "would process" sequence per disk, in resolution order.
	assert.Equal(t, 3, log.count("would process"))
	assert.Equal(t, 3, log.count("would verify"))
	for _, name := range []string{"sdb", "sdc", "sdd"} {
		found := false
		for _, line := range dryLines {
			if strings.Contains(line, "would wipe filesystem signatures on /dev/"+name) {
				found = true
			}
		}
		assert.True(t, found, "missing dry-run wipefs line for %s", name)
	}
	// Every stage produced description lines; nothing else ran.
	assert.Equal(t, 3, countContains(dryLines, "would unmount (lazy)"))
	assert.Equal(t, 3, countContains(dryLines, "would zap partition table"))
	assert.Equal(t, 3, countContains(dryLines, "would reread partition table"))
}

func countContains(lines []string, substr string) int {
	n := 0
	for _, line := range lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestRunMissingDeviceIsTargetFatal(t *testing.T) {
	sdc := &blockdev.Disk{Path: "/dev/sdc", Name: "sdc", Type: "disk", Size: testSize}
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdc": sdc},
		sizes: map[string]int64{"/dev/sdc": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	// sdb resolved earlier but is gone by the time its pipeline starts.
	outcomes := p.Run(context.Background(), []resolve.Target{
		{Path: "/dev/sdb", Name: "sdb"},
		{Path: "/dev/sdc", Name: "sdc"},
	}, nil)
	require.Len(t, outcomes, 2)
	assert.Equal(t, pipeline.OutcomeMissing, outcomes[0].Status)
	assert.Equal(t, pipeline.OutcomeProcessed, outcomes[1].Status)

	// Nothing touched the vanished device.
	assert.Equal(t, 0, mut.called("wipefs /dev/sdb"))
	assert.Equal(t, 1, mut.called("wipefs /dev/sdc"))
}

func TestManualDeclineSkipsDestructiveStages(t *testing.T) {
	disk := testDisk("/mnt/a")
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)
	p.Mode = pipeline.Manual

	outcomes := p.Run(context.Background(), []resolve.Target{target()}, declineAll{})
	require.Len(t, outcomes, 1)
	assert.Equal(t, pipeline.OutcomeDeclined, outcomes[0].Status)
	assert.Empty(t, mut.calls)

	outcomes = p.Run(context.Background(), []resolve.Target{target()}, approveAll{})
	assert.Equal(t, pipeline.OutcomeProcessed, outcomes[0].Status)
	assert.NotEmpty(t, mut.calls)
}

func TestInterruptStopsBeforeNextStage(t *testing.T) {
	disk := testDisk()
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": disk},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := p.Run(ctx, []resolve.Target{target(), target()}, nil)
	require.Len(t, outcomes, 2)
	for _, out := range outcomes {
		assert.Equal(t, pipeline.OutcomeInterrupted, out.Status)
	}
	assert.Empty(t, mut.calls)
}

func TestVerifyReportsResidualState(t *testing.T) {
	dirty := testDisk("/mnt/left")
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": dirty},
		pvs:   map[string][]system.PV{"/dev/sdb": {{Path: "/dev/sdb1", VG: "vgdata"}}},
	}
	p := testPipeline(insp, &fakeMutator{})

	report := p.Verify("/dev/sdb")
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"/dev/sdb1"}, report.ResidualPartitions)
	assert.Equal(t, []string{"/dev/sdb1"}, report.ResidualPVs)
	assert.NotEmpty(t, report.Hints())
}

func TestSecondRunOnWipedDiskStaysClean(t *testing.T) {
	// A disk that was already wiped: no partitions, no PVs, no mounts.
	bare := &blockdev.Disk{Path: "/dev/sdb", Name: "sdb", Type: "disk", Size: testSize}
	insp := &fakeInspector{
		disks: map[string]*blockdev.Disk{"/dev/sdb": bare},
		sizes: map[string]int64{"/dev/sdb": testSize},
	}
	mut := &fakeMutator{}
	p := testPipeline(insp, mut)

	for i := 0; i < 2; i++ {
		outcomes := p.Run(context.Background(), []resolve.Target{target()}, nil)
		require.Len(t, outcomes, 1)
		assert.Equal(t, pipeline.OutcomeProcessed, outcomes[0].Status)
		require.NotNil(t, outcomes[0].Report)
		assert.True(t, outcomes[0].Report.Clean())
	}

	// Pre-clean had nothing to release either time.
	assert.Equal(t, 0, mut.called("unmount"))
	assert.Equal(t, 0, mut.called("pv-remove"))
}
