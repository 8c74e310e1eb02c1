package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-farm")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func okBuild(target, variant, flavor string) *BuildRecord {
	return &BuildRecord{
		Target:        target,
		Variant:       variant,
		Flavor:        flavor,
		Ident:         "9.1+a1b2c3d4;" + variant,
		Status:        BuildStatusOK,
		Products:      []string{flavor + ".bin", flavor + ".elf", "sd/boot.bin"},
		DurationMs:    120000,
		CompletedAtMs: time.Now().UnixMilli(),
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-farm", client.farm)
	})

	t.Run("rejects empty farm name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "farm name cannot be empty")
	})
}

func TestNewClientFromURL(t *testing.T) {
	t.Run("parses redis URL", func(t *testing.T) {
		mr := miniredis.NewMiniRedis()
		require.NoError(t, mr.Start())
		t.Cleanup(mr.Close)

		client, err := NewClientFromURL("redis://"+mr.Addr(), "test-farm")
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("rejects malformed URL", func(t *testing.T) {
		_, err := NewClientFromURL("not-a-url", "test-farm")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid registry URL")
	})
}

func TestRecordBuild_RoundTrip(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	record := okBuild("zc706", "nist_qc2_satellite", "satman")
	require.NoError(t, client.RecordBuild(ctx, record))

	retrieved, err := client.GetBuild(ctx, "zc706", "nist_qc2_satellite")
	require.NoError(t, err)
	assert.Equal(t, record.Target, retrieved.Target)
	assert.Equal(t, record.Variant, retrieved.Variant)
	assert.Equal(t, record.Flavor, retrieved.Flavor)
	assert.Equal(t, record.Ident, retrieved.Ident)
	assert.Equal(t, BuildStatusOK, retrieved.Status)
	assert.Equal(t, record.Products, retrieved.Products)
	assert.Equal(t, record.DurationMs, retrieved.DurationMs)
	assert.Equal(t, record.CompletedAtMs, retrieved.CompletedAtMs)
}

func TestRecordBuild_ReplacesPrevious(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	first := okBuild("kasli_soc", "master", "runtime")
	require.NoError(t, client.RecordBuild(ctx, first))

	second := &BuildRecord{
		Target:        "kasli_soc",
		Variant:       "master",
		Flavor:        "runtime",
		Status:        BuildStatusFailed,
		Error:         "firmware tool failed: exit 1",
		CompletedAtMs: time.Now().UnixMilli(),
	}
	require.NoError(t, client.RecordBuild(ctx, second))

	retrieved, err := client.GetBuild(ctx, "kasli_soc", "master")
	require.NoError(t, err)
	assert.Equal(t, BuildStatusFailed, retrieved.Status)
	assert.Equal(t, "firmware tool failed: exit 1", retrieved.Error)

	// Still one index entry
	records, err := client.ListBuilds(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordBuild_RejectsInvalid(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		record  *BuildRecord
		wantErr string
	}{
		{
			name:    "missing target",
			record:  &BuildRecord{Variant: "master", Status: BuildStatusOK},
			wantErr: "missing target",
		},
		{
			name:    "bad status",
			record:  &BuildRecord{Target: "zc706", Variant: "nist_qc2", Status: "done"},
			wantErr: "invalid build status: done",
		},
		{
			name:    "failed without error",
			record:  &BuildRecord{Target: "zc706", Variant: "nist_qc2", Status: BuildStatusFailed},
			wantErr: "missing error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.RecordBuild(ctx, tt.record)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetBuild_NotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.GetBuild(context.Background(), "zc706", "never_built")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListBuilds_SortedByPair(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.RecordBuild(ctx, okBuild("zc706", "nist_qc2", "runtime")))
	require.NoError(t, client.RecordBuild(ctx, okBuild("ebaz4205", "standalone", "runtime")))
	require.NoError(t, client.RecordBuild(ctx, okBuild("kasli_soc", "satellite", "satman")))

	records, err := client.ListBuilds(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ebaz4205/standalone", records[0].Pair())
	assert.Equal(t, "kasli_soc/satellite", records[1].Pair())
	assert.Equal(t, "zc706/nist_qc2", records[2].Pair())
}

func TestRecordTest_RoundTripAndHistory(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i, outcome := range []string{TestOutcomePassed, TestOutcomeFailed, TestOutcomePassed} {
		record := &TestRecord{
			RunID:         "run-" + string(rune('a'+i)),
			BoardID:       "zc706-1",
			Target:        "zc706",
			Variant:       "nist_qc2_satellite",
			Outcome:       outcome,
			DurationMs:    90000,
			CompletedAtMs: base + int64(i*1000),
		}
		if outcome == TestOutcomeFailed {
			record.Reason = "boot timeout"
		}
		require.NoError(t, client.RecordTest(ctx, record))
	}

	// Direct fetch
	run, err := client.GetTest(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, TestOutcomeFailed, run.Outcome)
	assert.Equal(t, "boot timeout", run.Reason)

	// History is newest first
	history, err := client.LatestTests(ctx, "zc706-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-c", history[0].RunID)
	assert.Equal(t, "run-b", history[1].RunID)

	// Unknown board has empty history
	empty, err := client.LatestTests(ctx, "nonexistent", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordTest_RejectsInvalid(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	err := client.RecordTest(ctx, &TestRecord{
		RunID:   "run-1",
		BoardID: "zc706-1",
		Target:  "zc706",
		Variant: "nist_qc2_satellite",
		Outcome: TestOutcomeFailed,
		// Reason missing
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing reason")
}

func TestGetTest_NotFound(t *testing.T) {
	client, _ := setupTestClient(t)

	_, err := client.GetTest(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestScanTests(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	for _, runID := range []string{
		"6e1b24c0-9134-4f61-b0b3-4745178efe24",
		"6e1bffff-0000-4f61-b0b3-4745178efe24",
		"a77210d3-58a1-4c96-9ef0-26c8b94d1c38",
	} {
		require.NoError(t, client.RecordTest(ctx, &TestRecord{
			RunID:         runID,
			BoardID:       "zc706-1",
			Target:        "zc706",
			Variant:       "nist_qc2",
			Outcome:       TestOutcomePassed,
			DurationMs:    1000,
			CompletedAtMs: time.Now().UnixMilli(),
		}))
	}

	t.Run("prefix narrows matches", func(t *testing.T) {
		ids, err := client.ScanTests(ctx, "6e1b")
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		ids, err = client.ScanTests(ctx, "6e1b24c0")
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.Equal(t, "6e1b24c0-9134-4f61-b0b3-4745178efe24", ids[0])
	})

	t.Run("empty prefix lists all runs", func(t *testing.T) {
		ids, err := client.ScanTests(ctx, "")
		require.NoError(t, err)
		assert.Len(t, ids, 3)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		ids, err := client.ScanTests(ctx, "ffff")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSubscribeBuildEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.SubscribeBuildEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// Give the subscriber a moment to attach
	time.Sleep(50 * time.Millisecond)

	record := okBuild("zc706", "nist_clock", "runtime")
	require.NoError(t, client.RecordBuild(ctx, record))

	select {
	case got := <-sub.Events():
		assert.Equal(t, "zc706/nist_clock", got.Pair())
		assert.Equal(t, BuildStatusOK, got.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("no build event received within timeout")
	}
}

func TestSubscribeTestEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.SubscribeTestEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(50 * time.Millisecond)

	record := &TestRecord{
		RunID:         "run-evt",
		BoardID:       "kasli-1",
		Target:        "kasli_soc",
		Variant:       "master",
		Outcome:       TestOutcomePassed,
		CompletedAtMs: time.Now().UnixMilli(),
	}
	require.NoError(t, client.RecordTest(ctx, record))

	select {
	case got := <-sub.Events():
		assert.Equal(t, "run-evt", got.RunID)
		assert.Equal(t, TestOutcomePassed, got.Outcome)
	case <-time.After(3 * time.Second):
		t.Fatal("no test event received within timeout")
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	client, _ := setupTestClient(t)

	sub, err := client.SubscribeBuildEvents(context.Background())
	require.NoError(t, err)

	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
}

func TestSplitPair(t *testing.T) {
	target, variant, ok := splitPair("zc706/nist_qc2_satellite")
	assert.True(t, ok)
	assert.Equal(t, "zc706", target)
	assert.Equal(t, "nist_qc2_satellite", variant)

	_, _, ok = splitPair("no-slash")
	assert.False(t, ok)

	_, _, ok = splitPair("/leading")
	assert.False(t, ok)
}
