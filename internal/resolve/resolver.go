// Package resolve turns CLI device arguments into a validated,
// deduplicated target set, applying the protection rules that keep the
// tool from wiping the wrong disk.
package resolve

import (
	"errors"
	"fmt"

	"github.com/sigreer/diskzap/internal/blockdev"
)

// All is the sentinel argument selecting every eligible whole disk.
const All = "all"

// ErrNoTargets is the fatal condition of resolving to an empty set.
var ErrNoTargets = errors.New("no eligible target devices")

// Lister is the device enumerator dependency.
type Lister interface {
	List() ([]blockdev.Disk, error)
}

// Target is one validated wipe candidate.
type Target struct {
	Path   string
	Name   string
	Size   int64
	Model  string
	Serial string
}

// Skip records a candidate removed by a protection rule, for reporting.
type Skip struct {
	Path string
	Rule string
}

// Protection rule names, in evaluation order.
const (
	RuleExcluded   = "user-excluded"
	RuleSystemDisk = "system-disk"
	RuleSpecial    = "special-device"
	RuleMapper     = "device-mapper"
	RuleNotADisk   = "not-a-whole-disk"
)

// Options control resolution.
type Options struct {
	// Args are the positional CLI arguments: names, globs, or "all".
	Args []string
	// Exclude holds user exclusions, matched by exact name or canonical path.
	Exclude []string
	// IncludeDM lifts the device-mapper protection.
	IncludeDM bool
	// ForceSystemDisk lifts the system-disk protection.
	ForceSystemDisk bool
	// SystemDisk is the canonical path of the protected system disk;
	// empty means it could not be determined and the rule is inert.
	SystemDisk string
}

// Resolve expands the arguments against the enumerator, applies the
// protection rules in fixed order, re-verifies each survivor against the
// current device listing, and returns the deduplicated target set.
// An empty result is an error: a wipe invocation must never proceed
// with zero targets.
func Resolve(lister Lister, opts Options) ([]Target, []Skip, error) {
	candidates, err := expand(lister, opts.Args)
	if err != nil {
		return nil, nil, err
	}

	var skips []Skip
	var surviving []string
	for _, path := range candidates {
		if rule := protection(path, opts); rule != "" {
			skips = append(skips, Skip{Path: path, Rule: rule})
			continue
		}
		surviving = append(surviving, path)
	}

	// Re-verify against a fresh listing: a candidate valid at parse time
	// may have disappeared or changed type since.
	disks, err := lister.List()
	if err != nil {
		disks = nil
	}
	byPath := make(map[string]blockdev.Disk, len(disks))
	for _, d := range disks {
		byPath[d.Path] = d
	}

	var targets []Target
	seen := make(map[string]bool)
	for _, path := range surviving {
		if seen[path] {
			continue
		}
		seen[path] = true
		d, ok := byPath[path]
		if !ok || !eligibleType(d.Type, opts.IncludeDM) {
			skips = append(skips, Skip{Path: path, Rule: RuleNotADisk})
			continue
		}
		targets = append(targets, Target{
			Path:   d.Path,
			Name:   d.Name,
			Size:   d.Size,
			Model:  d.Model,
			Serial: d.Serial,
		})
	}

	if len(targets) == 0 {
		return nil, skips, ErrNoTargets
	}
	return targets, skips, nil
}

// expand turns the raw arguments into candidate canonical paths,
// preserving argument order and the enumerator's listing order.
func expand(lister Lister, args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no devices given")
	}

	for _, arg := range args {
		if arg == All {
			disks, err := lister.List()
			if err != nil {
				return nil, fmt.Errorf("enumerating devices: %w", err)
			}
			var paths []string
			for _, d := range disks {
				paths = append(paths, d.Path)
			}
			return paths, nil
		}
	}

	var listing []blockdev.Disk
	var paths []string
	for _, arg := range args {
		if !blockdev.HasGlobMeta(arg) {
			paths = append(paths, blockdev.Canonicalize(arg))
			continue
		}
		if listing == nil {
			disks, err := lister.List()
			if err != nil {
				return nil, fmt.Errorf("enumerating devices: %w", err)
			}
			listing = disks
		}
		for _, d := range listing {
			if blockdev.GlobMatch(arg, d.Name) || blockdev.GlobMatch(arg, d.Path) {
				paths = append(paths, d.Path)
			}
		}
	}
	return paths, nil
}

// protection applies the rules in fixed order and names the first one
// that fires. The special-device rule is never overridable: optical,
// loop, and ram devices cannot be meaningfully wiped and poking them
// risks unrelated kernel state.
func protection(path string, opts Options) string {
	name := blockdev.BaseName(path)
	for _, ex := range opts.Exclude {
		if ex == name || blockdev.Canonicalize(ex) == path {
			return RuleExcluded
		}
	}
	if opts.SystemDisk != "" && !opts.ForceSystemDisk && path == opts.SystemDisk {
		return RuleSystemDisk
	}
	if blockdev.IsSpecial(path) {
		return RuleSpecial
	}
	if blockdev.IsMapper(path) && !opts.IncludeDM {
		return RuleMapper
	}
	return ""
}

func eligibleType(devType string, includeDM bool) bool {
	if devType == "disk" {
		return true
	}
	return includeDM && devType == "mpath"
}
