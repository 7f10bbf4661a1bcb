package pipeline

import (
	"time"
)

// Report is the post-pipeline snapshot of one target. It informs the
// operator; nothing in the tool acts on it, because re-running
// destructive operations against residual state risks looping forever.
type Report struct {
	Device             string   `json:"device"`
	ResidualPartitions []string `json:"residual_partitions,omitempty"`
	ResidualPVs        []string `json:"residual_pvs,omitempty"`
}

// Clean reports whether the device shows no residual state.
func (r *Report) Clean() bool {
	return len(r.ResidualPartitions) == 0 && len(r.ResidualPVs) == 0
}

// Hints suggests manual next actions for residual state.
func (r *Report) Hints() []string {
	if r.Clean() {
		return nil
	}
	return []string{
		"check for processes holding the device: fuser -vm " + r.Device,
		"remove stale multipath maps: multipath -f " + r.Device,
		"a reboot clears kernel state no reload mechanism could",
	}
}

// Verify re-inspects the device after a settle delay and reports any
// partitions or LVM PV registrations that survived the wipe. It never
// fails the pipeline.
func (p *Pipeline) Verify(device string) *Report {
	if p.Settle > 0 {
		time.Sleep(p.Settle)
	}

	report := &Report{Device: device}

	disk, err := p.Inspector.Disk(device)
	if err == nil && disk != nil {
		for _, part := range disk.Partitions {
			report.ResidualPartitions = append(report.ResidualPartitions, part.Path)
		}
	}

	pvs, err := p.Inspector.PhysicalVolumesOn(device)
	if err == nil {
		for _, pv := range pvs {
			report.ResidualPVs = append(report.ResidualPVs, pv.Path)
		}
	}

	return report
}
