// Package system is the gateway to mutable host state: mounts, swap,
// LVM, device-mapper, and the block-device metadata the wipe pipeline
// destroys. All host access happens behind the Inspector and Mutator
// interfaces so the pipeline can be exercised against fakes.
package system

import (
	"errors"

	"github.com/sigreer/diskzap/internal/blockdev"
)

// ErrToolMissing is returned by a Mutator operation whose backing binary
// was not found at probe time. Stages report it as a skip, not a failure.
var ErrToolMissing = errors.New("required tool not installed")

// PV is an LVM physical volume registration.
type PV struct {
	Path string
	VG   string
}

// Inspector provides read-only views of host block-device state.
type Inspector interface {
	// ListDisks enumerates whole disks with their partitions.
	ListDisks() ([]blockdev.Disk, error)
	// Disk returns the current state of one whole disk, or nil if the
	// path no longer resolves to a present whole disk.
	Disk(path string) (*blockdev.Disk, error)
	// PhysicalVolumesOn lists LVM PVs residing on the device or its
	// partitions.
	PhysicalVolumesOn(device string) ([]PV, error)
	// MapperHolders lists device-mapper node names backed by the device.
	MapperHolders(device string) ([]string, error)
	// ActiveSwaps lists device paths with active swap.
	ActiveSwaps() ([]string, error)
	// DeviceSize returns the device capacity in bytes.
	DeviceSize(device string) (int64, error)
}

// Mutator performs the destructive and state-changing host operations.
// Methods are narrow, one external effect each, so the strictly
// sequential execution model has an explicit boundary.
type Mutator interface {
	// Pre-clean
	UnmountLazy(mountpoint string) error
	UnmountForce(mountpoint string) error
	SwapOff(device string) error
	DeactivateVolumeGroup(vg string) error
	RemoveLogicalVolumes(vg string) error
	RemoveVolumeGroup(vg string) error
	RemovePhysicalVolume(pv string) error
	RemoveMapperNode(name string) error

	// Erase
	ZeroMDSuperblock(device string) error
	ZapCephVolume(device string) error
	ClearZFSLabel(device string) error
	WipeSignatures(device string) error
	ZapPartitionTable(device string) error
	ZeroRange(device string, offset, length int64) error
	Discard(device string) error

	// Kernel reload
	RereadPartitionTable(device string) error
	Partprobe(device string) error
	RemoveMapperPartitions(device string) error
	RescanDevice(device string) error
	SettleUdev() error
}
