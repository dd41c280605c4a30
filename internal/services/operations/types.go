package operations

import "time"

// Kind identifies the remote action being tracked.
type Kind uint8

const (
	KindDeploy Kind = iota
	KindStop
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindDeploy:
		return "deploy"
	case KindStop:
		return "stop"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseKind maps the wire name of an action to its Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "deploy":
		return KindDeploy, true
	case "stop":
		return KindStop, true
	case "delete":
		return KindDelete, true
	default:
		return KindDeploy, false
	}
}

// StepStatus is the discrete state of a single operation step.
type StepStatus uint8

const (
	StepPending StepStatus = iota
	StepRunning
	StepCompleted
	StepError
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepCompleted:
		return "completed"
	case StepError:
		return "error"
	default:
		return "unknown"
	}
}

// RunStatus is the overall state of a run. Completed and Error are
// absorbing: once reached, the run never transitions again.
type RunStatus uint8

const (
	RunPending RunStatus = iota
	RunRunning
	RunCompleted
	RunError
)

func (s RunStatus) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has reached an absorbing state.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunError
}

// Outcome is the terminal classification of a poll sample.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
)

// Step is one labeled phase of an operation.
type Step struct {
	Index  int
	Label  string
	Status StepStatus
}

// Run is one execution instance of a remote action, mutated exclusively
// by the tracker loop that owns it while active.
type Run struct {
	ID           string
	Kind         Kind
	Target       string
	Title        string
	Steps        []Step
	Progress     int
	Status       RunStatus
	LogTail      string
	ErrorMessage string
	Attempts     int
	StartedAt    time.Time
}

// StepView is the presentation-layer projection of a Step.
type StepView struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Snapshot is the read-only view of a run handed to the presentation
// layer. Field values are copies; mutating a snapshot changes nothing.
type Snapshot struct {
	Title        string     `json:"title"`
	Kind         string     `json:"kind"`
	Target       string     `json:"target"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Steps        []StepView `json:"steps"`
	LogTail      string     `json:"log_tail"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Open         bool       `json:"is_open"`
}
