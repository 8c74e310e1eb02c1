package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/zforge/internal/registry"
)

// runA and runB share an 8-character prefix so prefix resolution has a
// real collision to disambiguate.
const (
	runA = "6e1b24c0-9134-4f61-b0b3-4745178efe24"
	runB = "6e1b24ff-0000-4f61-b0b3-4745178efe24"
	runC = "a77210d3-58a1-4c96-9ef0-26c8b94d1c38"
)

func setupRegistry(t *testing.T) *registry.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := registry.NewClient(&redis.Options{Addr: mr.Addr()}, "test-farm")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	for _, runID := range []string{runA, runB, runC} {
		require.NoError(t, client.RecordTest(context.Background(), &registry.TestRecord{
			RunID:         runID,
			BoardID:       "zc706-1",
			Target:        "zc706",
			Variant:       "nist_qc2",
			Outcome:       registry.TestOutcomePassed,
			DurationMs:    1000,
			CompletedAtMs: time.Now().UnixMilli(),
		}))
	}
	return client
}

func TestResolveRunID(t *testing.T) {
	client := setupRegistry(t)
	ctx := context.Background()

	t.Run("unique prefix resolves", func(t *testing.T) {
		id, err := ResolveRunID(ctx, client, "6e1b24c0")
		require.NoError(t, err)
		assert.Equal(t, runA, id)

		id, err = ResolveRunID(ctx, client, "a77210")
		require.NoError(t, err)
		assert.Equal(t, runC, id)
	})

	t.Run("full UUID passes through", func(t *testing.T) {
		id, err := ResolveRunID(ctx, client, runC)
		require.NoError(t, err)
		assert.Equal(t, runC, id)
	})

	t.Run("unrecorded full UUID is not found", func(t *testing.T) {
		_, err := ResolveRunID(ctx, client, "00000000-0000-4000-8000-000000000000")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("shared prefix is ambiguous", func(t *testing.T) {
		_, err := ResolveRunID(ctx, client, "6e1b24")
		require.Error(t, err)
		require.True(t, IsAmbiguousError(err))

		var ambig *AmbiguousError
		require.ErrorAs(t, err, &ambig)
		assert.Equal(t, []string{runA, runB}, ambig.Matches)
	})

	t.Run("no match is not found", func(t *testing.T) {
		_, err := ResolveRunID(ctx, client, "ffffff")
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("short prefix rejected", func(t *testing.T) {
		_, err := ResolveRunID(ctx, client, "6e1b2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 6 characters")
	})
}

func TestAmbiguousError_Format(t *testing.T) {
	err := &AmbiguousError{
		ShortID: "6e1b24",
		Matches: []string{runA, runB},
	}
	msg := FormatAmbiguousError(err)
	assert.Contains(t, msg, "matches 2 runs")
	assert.Contains(t, msg, runA)
	assert.Contains(t, msg, runB)
	assert.Contains(t, msg, "longer prefix")
}
