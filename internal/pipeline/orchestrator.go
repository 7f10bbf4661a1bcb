package pipeline

import (
	"context"

	"github.com/sigreer/diskzap/internal/resolve"
)

// Confirmer gates each target in manual mode. Returning false skips the
// target without running any destructive stage.
type Confirmer interface {
	Confirm(t resolve.Target) (bool, error)
}

// Target outcome classifications.
const (
	OutcomeProcessed   = "processed"
	OutcomePreviewed   = "previewed"
	OutcomeDeclined    = "declined"
	OutcomeMissing     = "missing"
	OutcomeInterrupted = "interrupted"
)

// Outcome is the per-target record the orchestrator hands to the
// summary and the journal.
type Outcome struct {
	Target resolve.Target
	Status string
	Stages []*StageResult
	Report *Report
}

// Warnings flattens every stage warning for this target.
func (o *Outcome) Warnings() []string {
	var all []string
	for _, s := range o.Stages {
		all = append(all, s.Warnings...)
	}
	return all
}

// Run processes the target set strictly sequentially. An interrupt via
// ctx stops before the next stage or target begins; it never aborts a
// destructive system call already in flight, because most of them are
// not safely abortable.
func (p *Pipeline) Run(ctx context.Context, targets []resolve.Target, confirm Confirmer) []Outcome {
	outcomes := make([]Outcome, 0, len(targets))

	for _, target := range targets {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Target: target, Status: OutcomeInterrupted})
			continue
		}
		outcomes = append(outcomes, p.runTarget(ctx, target, confirm))
	}

	return outcomes
}

func (p *Pipeline) runTarget(ctx context.Context, target resolve.Target, confirm Confirmer) Outcome {
	out := Outcome{Target: target, Status: OutcomeProcessed}

	// The device was a whole disk at resolution time; re-check before
	// touching it. Disappearance since then is fatal for this target
	// only.
	disk, err := p.Inspector.Disk(target.Path)
	if err != nil || disk == nil {
		p.log().Warnf("%s is no longer a present whole disk, skipping", target.Path)
		out.Status = OutcomeMissing
		return out
	}

	if p.Mode == Manual && confirm != nil {
		ok, err := confirm.Confirm(target)
		if err != nil {
			p.log().Warnf("confirmation for %s: %v", target.Path, err)
		}
		if !ok {
			p.log().Infof("skipping %s", target.Path)
			out.Status = OutcomeDeclined
			return out
		}
	}

	if p.Mode == Preview {
		p.log().Infof("would process %s", target.Path)
	} else {
		p.log().Infof("processing %s", target.Path)
	}

	stages := []func() *StageResult{
		func() *StageResult { return p.PreClean(disk) },
		func() *StageResult { return p.Erase(disk) },
		func() *StageResult { return p.Reload(disk.Path) },
	}
	for _, stage := range stages {
		if ctx.Err() != nil {
			out.Status = OutcomeInterrupted
			return out
		}
		out.Stages = append(out.Stages, stage())
	}

	if p.Mode == Preview {
		p.log().Infof("would verify residual state on %s", target.Path)
		out.Status = OutcomePreviewed
		return out
	}

	if ctx.Err() != nil {
		out.Status = OutcomeInterrupted
		return out
	}
	out.Report = p.Verify(disk.Path)
	return out
}
