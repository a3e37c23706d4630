package oneshot

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
)

// PhaseFunc is the signature shared by all build phases
type PhaseFunc func(ctx context.Context, cfg BuildConfig, runner Runner) error

// Phase is a named step of the build
type Phase struct {
	Name string
	Desc string
	Run  PhaseFunc
}

// Phases lists the build phases in execution order
var Phases = []Phase{
	{Name: "prepare", Desc: "Preparing the build directory", Run: PrepareWorkingDirectory},
	{Name: "build", Desc: "Building ICU", Run: RunBuild},
	{Name: "finalize", Desc: "Packaging the data file", Run: FinalizeArtifact},
}

// PhaseResult records the outcome of a single phase
type PhaseResult struct {
	Phase   string
	Err     error
	Skipped bool
}

// Report collects the results of every phase in execution order
type Report []PhaseResult

// Failed returns true if any phase failed
func (r Report) Failed() bool {
	for _, item := range r {
		if item.Err != nil {
			return true
		}
	}
	return false
}

// Err combines the errors of all failed phases
func (r Report) Err() error {
	var result error
	for _, item := range r {
		if item.Err != nil {
			result = multierr.Append(result, item.Err)
		}
	}
	return result
}

// Orchestrator runs the build phases and applies the configured Policy to failures
type Orchestrator struct {
	Config BuildConfig
	Runner Runner
	Phases []Phase

	// OnPhase is called before each phase, i.e. to print a heading
	OnPhase func(phase Phase)
}

// NewOrchestrator returns an Orchestrator for the default phases
func NewOrchestrator(cfg BuildConfig, runner Runner) *Orchestrator {
	return &Orchestrator{
		Config: cfg,
		Runner: runner,
		Phases: Phases,
	}
}

// Run executes all phases. Under ContinueOnError every phase is attempted and the returned error is
// always nil; failures are only logged and recorded in the report. Under FailFast the first failure
// ends the run and is returned.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	report := make(Report, 0, len(o.Phases))
	log(ctx).Debug().
		Str("path", o.Config.Paths.BuildDir).
		Str("policy", o.Config.Policy.String()).
		Bool("fresh", o.Config.Fresh).
		Msgf("Locate the temporary directory: %s", o.Config.Paths.BuildDir)

	for idx, phase := range o.Phases {
		if err := ctx.Err(); err != nil {
			report = appendSkipped(report, o.Phases[idx:])
			return report, eris.Wrap(err, "Build interrupted")
		}

		if o.OnPhase != nil {
			o.OnPhase(phase)
		}

		err := phase.Run(ctx, o.Config, o.Runner)
		report = append(report, PhaseResult{Phase: phase.Name, Err: err})
		if err == nil {
			continue
		}

		log(ctx).Error().
			Str("phase", phase.Name).
			Err(err).
			Msgf("%s failed", phase.Desc)

		if o.Config.Policy == FailFast {
			report = appendSkipped(report, o.Phases[idx+1:])
			return report, eris.Wrapf(err, "Phase %s failed", phase.Name)
		}
	}

	return report, nil
}

func appendSkipped(report Report, phases []Phase) Report {
	for _, phase := range phases {
		report = append(report, PhaseResult{Phase: phase.Name, Skipped: true})
	}
	return report
}
