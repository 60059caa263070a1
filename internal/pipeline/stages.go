// Package pipeline sequences the audit stages: dependency gating, parallel
// pair execution, checkpoint-backed resume and pause/stop control.
package pipeline

// Stage is one named, dependency-gated step of the audit. The set is closed
// and compiled in; stages are never created or destroyed at runtime.
type Stage string

const (
	StagePreflight  Stage = "preflight"
	StageCodeScan   Stage = "code-scan"
	StageExplore    Stage = "explore"
	StageTest       Stage = "test"
	StageResponsive Stage = "responsive"
	StageAggregate  Stage = "aggregate"
	StageVerify     Stage = "verify"
	StageCompare    Stage = "compare"
	StageReport     Stage = "report"
)

// Mode selects which subset of the stage graph a run executes.
type Mode string

const (
	ModeFull     Mode = "full"
	ModeQuick    Mode = "quick"
	ModeCodeOnly Mode = "code-only"
)

// dependencies declares each stage's prerequisites. The declared stage
// orders below are topological with respect to this map; the scheduler
// relies on that and skips (once) rather than re-queues a stage whose
// prerequisites are unmet.
var dependencies = map[Stage][]Stage{
	StagePreflight:  nil,
	StageCodeScan:   {StagePreflight},
	StageExplore:    {StagePreflight},
	StageTest:       {StageExplore},
	StageResponsive: {StageExplore},
	StageAggregate:  {StageCodeScan, StageExplore, StageTest, StageResponsive},
	StageVerify:     {StageAggregate},
	StageCompare:    {StageAggregate},
	StageReport:     {StageAggregate, StageVerify, StageCompare},
}

// parallelGroups are the stage pairs eligible to run concurrently once their
// shared prerequisite is satisfied. A stage belongs to at most one group.
var parallelGroups = [][2]Stage{
	{StageCodeScan, StageExplore},
	{StageTest, StageResponsive},
	{StageVerify, StageCompare},
}

var modeStages = map[Mode][]Stage{
	ModeFull: {
		StagePreflight, StageCodeScan, StageExplore, StageTest, StageResponsive,
		StageAggregate, StageVerify, StageCompare, StageReport,
	},
	ModeQuick: {
		StagePreflight, StageCodeScan, StageExplore, StageAggregate, StageVerify, StageReport,
	},
	ModeCodeOnly: {
		StagePreflight, StageCodeScan, StageAggregate, StageReport,
	},
}

// ValidMode reports whether mode names a known stage subset.
func ValidMode(mode Mode) bool {
	_, ok := modeStages[mode]
	return ok
}

// StagesForMode returns the ordered stage list for a mode. The returned
// slice is a copy; callers may not mutate the compiled-in plan.
func StagesForMode(mode Mode) []Stage {
	plan, ok := modeStages[mode]
	if !ok {
		return nil
	}
	out := make([]Stage, len(plan))
	copy(out, plan)
	return out
}

// StageNames converts a stage list into plain strings for the stores.
func StageNames(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, stage := range stages {
		out[i] = string(stage)
	}
	return out
}

// EffectiveDependencies returns a stage's prerequisites restricted to the
// stages actually present in the run plan, so a mode that omits a stage does
// not permanently block its dependents.
func EffectiveDependencies(stage Stage, plan []Stage) []Stage {
	inPlan := make(map[Stage]bool, len(plan))
	for _, s := range plan {
		inPlan[s] = true
	}

	var deps []Stage
	for _, dep := range dependencies[stage] {
		if inPlan[dep] {
			deps = append(deps, dep)
		}
	}
	return deps
}

// ParallelPartner returns the other member of stage's parallel group, if any.
func ParallelPartner(stage Stage) (Stage, bool) {
	for _, group := range parallelGroups {
		if group[0] == stage {
			return group[1], true
		}
		if group[1] == stage {
			return group[0], true
		}
	}
	return "", false
}
