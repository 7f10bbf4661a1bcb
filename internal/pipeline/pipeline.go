package pipeline

import (
	"errors"
	"time"

	"github.com/sigreer/diskzap/internal/system"
)

// Mode is the execution mode, fixed for the whole invocation.
type Mode int

const (
	// Manual prompts for confirmation before each target.
	Manual Mode = iota
	// Auto runs every resolved target without prompting.
	Auto
	// Preview logs what would run without mutating anything.
	Preview
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Auto:
		return "auto"
	case Preview:
		return "dry-run"
	}
	return "unknown"
}

// MiB in bytes.
const MiB = 1 << 20

// Pipeline executes the wipe stages for one invocation. Targets are
// processed strictly sequentially: the LVM and device-mapper tables the
// pre-clean stage mutates are host-global, so per-target parallelism
// would race on them.
type Pipeline struct {
	Inspector system.Inspector
	Mutator   system.Mutator
	Logger    Logger

	Mode    Mode
	WipeMiB int
	Settle  time.Duration
	ZapCeph bool
	ZapZFS  bool
}

func (p *Pipeline) log() Logger {
	if p.Logger == nil {
		return nopLogger{}
	}
	return p.Logger
}

// step runs one best-effort sub-step and files its outcome. Sub-step
// failures are warnings, never aborts: each targets an independent
// metadata location and a later forced overwrite usually succeeds
// regardless.
func (p *Pipeline) step(r *StageResult, desc string, fn func() error) {
	err := fn()
	switch {
	case err == nil:
		r.steps++
		if p.Mode != Preview {
			p.log().Infof("%s", desc)
		}
	case errors.Is(err, system.ErrToolMissing):
		r.skipf("%s: tool not installed", desc)
	default:
		r.warnf("%s: %v", desc, err)
		p.log().Warnf("%s: %v", desc, err)
	}
}
