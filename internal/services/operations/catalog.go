package operations

// Step label templates per operation kind. The labels mirror what the
// agent actually does for each action, in order.
var (
	deploySteps = []string{
		"Downloading source code",
		"Detecting project type",
		"Building image",
		"Starting container",
		"Running health check",
	}
	stopSteps = []string{
		"Stopping container",
		"Cleaning up resources",
	}
	deleteSteps = []string{
		"Stopping container",
		"Removing resources",
		"Deleting files",
	}
)

// StepsFor returns a fresh pending step list for the given kind.
// Indices are 1-based; index 0 is reserved for "nothing matched yet".
func StepsFor(kind Kind) []Step {
	labels := deploySteps
	switch kind {
	case KindStop:
		labels = stopSteps
	case KindDelete:
		labels = deleteSteps
	}

	steps := make([]Step, len(labels))
	for i, label := range labels {
		steps[i] = Step{Index: i + 1, Label: label, Status: StepPending}
	}
	return steps
}
