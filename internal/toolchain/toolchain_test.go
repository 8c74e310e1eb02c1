package toolchain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/zforge/internal/config"
)

func TestFor_LocalTool(t *testing.T) {
	r, err := For(config.ToolConfig{Command: []string{"fw-build"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ExecRunner{}, r)
}

func TestFor_ContainerToolWithoutClient(t *testing.T) {
	_, err := For(config.ToolConfig{
		Command:   []string{"fw-build"},
		Container: "zynq-toolchain:latest",
	}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "zynq-toolchain:latest")
	assert.Contains(t, err.Error(), "no Docker client")
}

func TestIsToolError(t *testing.T) {
	te := &ToolError{Tool: "firmware", Command: []string{"fw-build"}, ExitCode: 1}

	assert.True(t, IsToolError(te))
	assert.True(t, IsToolError(fmt.Errorf("build failed: %w", te)), "matches through wrapping")
	assert.False(t, IsToolError(errors.New("plain error")))
	assert.False(t, IsToolError(nil))
}

func TestToolError_Message(t *testing.T) {
	te := &ToolError{
		Tool:     "packer",
		Command:  []string{"mkbootimage", "boot.bif", "boot.bin"},
		ExitCode: 2,
		Output:   "bad BIF syntax",
	}

	msg := te.Error()
	assert.Contains(t, msg, "packer tool failed")
	assert.Contains(t, msg, "mkbootimage boot.bif boot.bin")
	assert.Contains(t, msg, "exited with code 2")
	assert.Contains(t, msg, "bad BIF syntax")
}
