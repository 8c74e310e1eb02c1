package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		context := map[string]string{
			"Workspace": "/path/to/workspace",
			"Instance":  "test-instance",
		}
		err := ErrorWithContext("Test Error", "Explanation", context, []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		context := map[string]string{"Key": "Value"}
		err := ErrorWithContext("Test Error", "Explanation", context, []string{"Fix it"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestFtable(t *testing.T) {
	t.Run("renders headers and all cells", func(t *testing.T) {
		var buf bytes.Buffer
		Ftable(&buf, []string{"PAIR", "STATUS"}, [][]string{
			{"zc706/nist_qc2", "ok"},
			{"kasli_soc/master", "failed"},
		})

		out := buf.String()
		require.Contains(t, out, "PAIR")
		require.Contains(t, out, "STATUS")
		require.Contains(t, out, "zc706/nist_qc2")
		require.Contains(t, out, "kasli_soc/master")
		require.Contains(t, out, "failed")
	})

	t.Run("renders empty table without panicking", func(t *testing.T) {
		var buf bytes.Buffer
		Ftable(&buf, []string{"PAIR"}, nil)
	})
}

// Note: The Error and ErrorWithContext functions print formatted output to stderr
// with colors. The error object returned only contains the title for Cobra's error handling.
// This is intentional to avoid duplicate output while providing rich formatted errors.
