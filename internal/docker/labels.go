package docker

import "github.com/shinji-kodama/chipdo/internal/cmake"

// Label keys applied to every build container. The shared prefix keeps
// them apart from labels set by other tools.
const (
	// LabelPrefix is the common prefix for all chipdo labels.
	LabelPrefix = "chipdo."

	// LabelManagedBy identifies containers started by chipdo.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the configured project name.
	LabelProject = LabelPrefix + "project"

	// LabelRoot stores the absolute project root mounted into the container.
	LabelRoot = LabelPrefix + "root"

	// LabelCommand stores the command line the container runs.
	LabelCommand = LabelPrefix + "command"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "chipdo"

// BuildLabels returns the labels for a container running cmd for the
// given project.
func BuildLabels(project, root string, cmd cmake.Command) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   project,
		LabelRoot:      root,
		LabelCommand:   cmd.String(),
	}
}
