package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskzap/internal/blockdev"
)

type fakeLister struct {
	disks []blockdev.Disk
	calls int
}

func (f *fakeLister) List() ([]blockdev.Disk, error) {
	f.calls++
	return f.disks, nil
}

func disk(name string) blockdev.Disk {
	return blockdev.Disk{
		Path: "/dev/" + name,
		Name: name,
		Type: "disk",
		Size: 100 << 30,
	}
}

func paths(targets []Target) []string {
	var out []string
	for _, t := range targets {
		out = append(out, t.Path)
	}
	return out
}

func TestResolveAllExcludesSystemDisk(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sda"), disk("sdb"), disk("sdc")}}

	targets, skips, err := Resolve(lister, Options{
		Args:       []string{"all"},
		SystemDisk: "/dev/sda",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb", "/dev/sdc"}, paths(targets))
	require.Len(t, skips, 1)
	assert.Equal(t, RuleSystemDisk, skips[0].Rule)
}

func TestResolveForceLiftsSystemDiskProtection(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sda"), disk("sdb")}}

	targets, _, err := Resolve(lister, Options{
		Args:            []string{"all"},
		SystemDisk:      "/dev/sda",
		ForceSystemDisk: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sda", "/dev/sdb"}, paths(targets))
}

func TestResolveSpecialDevicesNeverEligible(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sdb")}}

	// Explicit requests for special devices lose under every flag
	// combination.
	targets, skips, err := Resolve(lister, Options{
		Args:            []string{"loop0", "sr0", "ram1", "sdb"},
		ForceSystemDisk: true,
		IncludeDM:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb"}, paths(targets))

	rules := make(map[string]string)
	for _, s := range skips {
		rules[s.Path] = s.Rule
	}
	assert.Equal(t, RuleSpecial, rules["/dev/loop0"])
	assert.Equal(t, RuleSpecial, rules["/dev/sr0"])
	assert.Equal(t, RuleSpecial, rules["/dev/ram1"])
}

func TestResolveMapperProtection(t *testing.T) {
	mpath := blockdev.Disk{Path: "/dev/dm-0", Name: "dm-0", Type: "mpath"}
	lister := &fakeLister{disks: []blockdev.Disk{disk("sdb"), mpath}}

	_, skips, err := Resolve(lister, Options{Args: []string{"dm-0"}})
	assert.ErrorIs(t, err, ErrNoTargets)
	require.Len(t, skips, 1)
	assert.Equal(t, RuleMapper, skips[0].Rule)

	targets, _, err := Resolve(lister, Options{Args: []string{"dm-0"}, IncludeDM: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/dm-0"}, paths(targets))
}

func TestResolveDeduplicates(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sdb"), disk("sdc")}}

	// sdb arrives twice: explicitly and via the pattern.
	targets, _, err := Resolve(lister, Options{
		Args: []string{"sdb", "sd*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb", "/dev/sdc"}, paths(targets))
}

func TestResolveGlobAgainstListing(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sda"), disk("nvme0n1"), disk("nvme1n1")}}

	targets, _, err := Resolve(lister, Options{Args: []string{"nvme*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/nvme0n1", "/dev/nvme1n1"}, paths(targets))
}

func TestResolveEmptySetIsFatal(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sda")}}

	_, _, err := Resolve(lister, Options{
		Args:       []string{"all"},
		SystemDisk: "/dev/sda",
	})
	assert.ErrorIs(t, err, ErrNoTargets)

	_, _, err = Resolve(lister, Options{Args: []string{"sdx*"}})
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestResolveVanishedDeviceDropped(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sdb")}}

	// sdq was named explicitly but is not in the current listing.
	targets, skips, err := Resolve(lister, Options{Args: []string{"sdb", "sdq"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb"}, paths(targets))
	require.Len(t, skips, 1)
	assert.Equal(t, RuleNotADisk, skips[0].Rule)
}

func TestResolveAllWithExclusions(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sda"), disk("sdb"), disk("sdc"), disk("sdd")}}

	// sda is excluded twice over: by name and by the system-disk rule.
	targets, _, err := Resolve(lister, Options{
		Args:       []string{"all"},
		Exclude:    []string{"sda", "sdc"},
		SystemDisk: "/dev/sda",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb", "/dev/sdd"}, paths(targets))
}

func TestResolveExcludeByPath(t *testing.T) {
	lister := &fakeLister{disks: []blockdev.Disk{disk("sdb"), disk("sdc")}}

	targets, _, err := Resolve(lister, Options{
		Args:    []string{"all"},
		Exclude: []string{"/dev/sdc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdb"}, paths(targets))
}
