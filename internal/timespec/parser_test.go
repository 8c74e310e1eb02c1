package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("rfc3339 is absolute", func(t *testing.T) {
		ms, err := Parse("2026-08-21T13:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 8, 21, 13, 0, 0, 0, time.UTC).UnixMilli(), ms)
	})

	t.Run("duration means that long ago", func(t *testing.T) {
		before := time.Now().Add(-2 * time.Hour).UnixMilli()
		ms, err := Parse("2h")
		require.NoError(t, err)
		after := time.Now().Add(-2 * time.Hour).UnixMilli()

		assert.GreaterOrEqual(t, ms, before)
		assert.LessOrEqual(t, ms, after)
	})

	t.Run("rejects junk", func(t *testing.T) {
		for _, spec := range []string{"", "yesterday", "2026-08-21", "2 hours"} {
			_, err := Parse(spec)
			assert.Error(t, err, "spec %q should be rejected", spec)
		}
	})
}

func TestParseRange(t *testing.T) {
	t.Run("both ends optional", func(t *testing.T) {
		sinceMs, untilMs, err := ParseRange("", "")
		require.NoError(t, err)
		assert.Zero(t, sinceMs)
		assert.Zero(t, untilMs)
	})

	t.Run("since only", func(t *testing.T) {
		sinceMs, untilMs, err := ParseRange("1h", "")
		require.NoError(t, err)
		assert.Positive(t, sinceMs)
		assert.Zero(t, untilMs)
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		_, _, err := ParseRange("2026-08-21T13:00:00Z", "2026-08-21T12:00:00Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since must be before --until")
	})

	t.Run("bad flag named in error", func(t *testing.T) {
		_, _, err := ParseRange("1h", "junk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --until")
	})
}

func TestInWindow(t *testing.T) {
	assert.True(t, InWindow(500, 0, 0))
	assert.True(t, InWindow(500, 400, 600))
	assert.False(t, InWindow(300, 400, 600))
	assert.False(t, InWindow(700, 400, 600))
	assert.True(t, InWindow(700, 400, 0))
	assert.False(t, InWindow(300, 400, 0))
	assert.True(t, InWindow(300, 0, 600))
}
