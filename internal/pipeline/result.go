// Package pipeline sequences the destructive stages of a wipe run:
// pre-clean, erase, kernel reload, verify. Stages are best-effort and
// report outcomes instead of unwinding; only resolution and presence
// failures stop a target.
package pipeline

import "fmt"

// Status is the outcome of a stage or sub-step.
type Status int

const (
	Succeeded Status = iota
	Warned
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "ok"
	case Warned:
		return "warned"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// StageResult aggregates one stage's sub-step outcomes for one target.
type StageResult struct {
	Stage    string
	Status   Status
	Warnings []string
	Skips    []string

	steps int // sub-steps that actually ran
}

func newResult(stage string) *StageResult {
	return &StageResult{Stage: stage, Status: Succeeded}
}

// warnf records a sub-step failure. Warnings never abort a stage.
func (r *StageResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// skipf records a sub-step that could not run (tool absent, feature
// unsupported). Skips are quieter than warnings.
func (r *StageResult) skipf(format string, args ...any) {
	r.Skips = append(r.Skips, fmt.Sprintf(format, args...))
}

// finalize settles the stage status from the accumulated sub-steps.
func (r *StageResult) finalize() *StageResult {
	switch {
	case len(r.Warnings) > 0:
		r.Status = Warned
	case r.steps == 0:
		r.Status = Skipped
	default:
		r.Status = Succeeded
	}
	return r
}

// Logger receives stage progress lines. The command layer backs it with
// pterm; tests use a recorder.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}
