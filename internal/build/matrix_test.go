package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/zforge/internal/board"
)

func TestBuildAll_BuildsEveryPair(t *testing.T) {
	f := newFixture(t)

	results := f.builder.BuildAll(context.Background(), false)

	// 12 zc706 variants + 2 kasli_soc + 1 ebaz4205
	require.Len(t, results, 15)
	for _, r := range results {
		assert.NoError(t, r.Err, "%s/%s", r.Target, r.Variant)
		require.NotNil(t, r.Set)
		assert.FileExists(t, r.Set.SD)
	}

	// One firmware and one gateware run per pair
	assert.Len(t, f.firmware.calls(), 15)
	assert.Len(t, f.gateware.calls(), 15)
}

func TestBuildAll_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.firmware.failPair = "zc706/nist_clock"

	results := f.builder.BuildAll(context.Background(), false)
	require.Len(t, results, 15)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, "zc706", r.Target)
			assert.Equal(t, "nist_clock", r.Variant)
			continue
		}
		assert.NotNil(t, r.Set)
	}
	assert.Equal(t, 1, failed, "one broken variant never aborts the rest of the matrix")
}

func TestBuildMany_ResultsInRequestOrder(t *testing.T) {
	f := newFixture(t)
	reqs := []Request{
		{Target: "ebaz4205", Variant: "standalone"},
		{Target: "kasli_soc", Variant: "satellite"},
		{Target: "kasli_soc", Variant: "master"},
	}

	results := f.builder.BuildMany(context.Background(), reqs)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, reqs[i].Target, r.Target)
		assert.Equal(t, reqs[i].Variant, r.Variant)
		assert.NoError(t, r.Err)
	}
}

func TestBuildMany_CustomRegistry(t *testing.T) {
	f := newFixtureWithBoards(t, []board.Target{
		{Name: "coraz7", Variants: []board.Variant{{Name: "standalone"}}},
	})

	results := f.builder.BuildAll(context.Background(), false)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Contains(t, results[0].Set.FirmwareBin, "runtime.bin")
}
