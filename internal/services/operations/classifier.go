package operations

import "strings"

// Classification is the result of classifying one poll sample.
type Classification struct {
	StepIndex int
	Progress  int
	Outcome   Outcome
}

// triggerRule advances the step index when any of its substrings appears
// in the log text (case-sensitive containment) or the coarse status field
// equals its status value.
type triggerRule struct {
	substrings []string
	status     string
	step       int
	success    bool
}

func (r triggerRule) matches(logText, status string) bool {
	for _, s := range r.substrings {
		if strings.Contains(logText, s) {
			return true
		}
	}
	return r.status != "" && status == r.status
}

// The trigger tables are tuned to the exact phrasing the agent writes to
// its operation logs. Changing a substring here breaks classification of
// live deployments, so treat these as part of the agent wire contract.
var (
	deployRules = []triggerRule{
		{substrings: []string{"Downloading", "Downloaded"}, step: 1},
		{substrings: []string{"Found", "Detected"}, step: 2},
		{substrings: []string{"Building", "docker-compose"}, step: 3},
		{substrings: []string{"Starting", "Creating"}, step: 4},
		{substrings: []string{"success"}, status: "running", step: 5, success: true},
	}
	stopRules = []triggerRule{
		{substrings: []string{"Stopping", "docker-compose"}, step: 1},
		{substrings: []string{"stopped"}, status: "stopped", step: 2, success: true},
	}
	deleteRules = []triggerRule{
		{substrings: []string{"Stopping", "docker-compose"}, step: 1},
		{substrings: []string{"Removing", "removed"}, step: 2},
		{substrings: []string{"Deleted"}, status: "deleted", step: 3, success: true},
	}
)

// Progress percent per step index, per kind. Index 0 is the fixed
// starting value shown before any rule has fired.
var progressTable = map[Kind][]int{
	KindDeploy: {20, 30, 45, 60, 80, 100},
	KindStop:   {20, 50, 100},
	KindDelete: {20, 40, 70, 100},
}

func rulesFor(kind Kind) []triggerRule {
	switch kind {
	case KindStop:
		return stopRules
	case KindDelete:
		return deleteRules
	default:
		return deployRules
	}
}

func progressFor(kind Kind, step int) int {
	table := progressTable[kind]
	if step < 0 {
		step = 0
	}
	if step >= len(table) {
		step = len(table) - 1
	}
	return table[step]
}

// Classify evaluates the trigger table for kind against the accumulated
// log text and coarse status field. The resulting step index never
// regresses below prevStep, even when only an earlier rule's substring
// appears. Error detection runs after the progress rules and overrides
// any terminal outcome they produced.
func Classify(kind Kind, logText, status string, prevStep int) Classification {
	idx := prevStep
	if idx < 0 {
		idx = 0
	}

	success := false
	for _, r := range rulesFor(kind) {
		if !r.matches(logText, status) {
			continue
		}
		if r.step > idx {
			idx = r.step
		}
		if r.success {
			success = true
		}
	}

	c := Classification{StepIndex: idx, Progress: progressFor(kind, idx)}
	if success {
		c.Outcome = OutcomeSuccess
	}
	if status == "error" || strings.Contains(strings.ToLower(logText), "failed") {
		c.Outcome = OutcomeError
	}
	return c
}
