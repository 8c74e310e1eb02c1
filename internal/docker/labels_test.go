package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	runID := "test-run-123"

	labels := BuildLabels("firmware", "zc706/nist_qc2_satellite", runID)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "firmware", labels[LabelTool])
	assert.Equal(t, "zc706/nist_qc2_satellite", labels[LabelPair])
	assert.Equal(t, runID, labels[LabelRunID])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_NoPair(t *testing.T) {
	runID := "test-run-456"

	labels := BuildLabels("packer", "", runID)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "packer", labels[LabelTool])
	assert.Equal(t, runID, labels[LabelRunID])
	assert.NotContains(t, labels, LabelPair)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	runID1 := GenerateRunID()
	runID2 := GenerateRunID()

	// Verify they are valid UUIDs
	_, err1 := uuid.Parse(runID1)
	assert.NoError(t, err1)

	_, err2 := uuid.Parse(runID2)
	assert.NoError(t, err2)

	// Verify they are different
	assert.NotEqual(t, runID1, runID2)
}

func TestToolContainerName(t *testing.T) {
	testCases := []struct {
		tool     string
		runID    string
		expected string
	}{
		{"firmware", "0a1b2c3d-0000-0000-0000-000000000000", "zforge-firmware-0a1b2c3d"},
		{"gateware", "deadbeef-0000-0000-0000-000000000000", "zforge-gateware-deadbeef"},
		{"packer", "12345678-0000-0000-0000-000000000000", "zforge-packer-12345678"},
	}

	for _, tc := range testCases {
		result := ToolContainerName(tc.tool, tc.runID)
		assert.Equal(t, tc.expected, result)
	}
}
