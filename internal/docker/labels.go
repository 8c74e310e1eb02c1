package docker

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for zforge resources
const (
	LabelProject = "zforge.project"
	LabelTool    = "zforge.tool"    // firmware, gateware or packer
	LabelPair    = "zforge.pair"    // target/variant the container is building
	LabelRunID   = "zforge.run_id"  // unique per tool invocation
)

// BuildLabels creates the standard label set for zforge build containers.
// Stray containers from interrupted builds can be found and removed by
// filtering on zforge.project=true.
func BuildLabels(tool, pair, runID string) map[string]string {
	labels := map[string]string{
		LabelProject: "true",
		LabelTool:    tool,
		LabelRunID:   runID,
	}

	if pair != "" {
		labels[LabelPair] = pair
	}

	return labels
}

// GenerateRunID creates a new UUID for a tool invocation.
func GenerateRunID() string {
	return uuid.New().String()
}

// ToolContainerName returns the container name for one tool invocation.
// The run ID suffix keeps concurrent builds of the same pair distinct.
func ToolContainerName(tool, runID string) string {
	return fmt.Sprintf("zforge-%s-%s", tool, runID[:8])
}
