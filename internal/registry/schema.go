package registry

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by farm name so that
// several lab setups can share one Redis server.
//
// Key pattern: zforge:{farm}:{entity}:{identity}
// Channel pattern: zforge:{farm}:{event_type}_events

// BuildKey returns the Redis key for the latest build of a pair.
// Pattern: zforge:{farm}:build:{target}:{variant}
func BuildKey(farm, target, variant string) string {
	return fmt.Sprintf("zforge:%s:build:%s:%s", farm, target, variant)
}

// BuildIndexKey returns the Redis key of the set of recorded pairs.
// Pattern: zforge:{farm}:builds
func BuildIndexKey(farm string) string {
	return fmt.Sprintf("zforge:%s:builds", farm)
}

// TestKey returns the Redis key for one test run.
// Pattern: zforge:{farm}:test:{run_id}
func TestKey(farm, runID string) string {
	return fmt.Sprintf("zforge:%s:test:%s", farm, runID)
}

// TestHistoryKey returns the Redis key for a board's run history ZSET,
// scored by completion time.
// Pattern: zforge:{farm}:test_history:{board_id}
func TestHistoryKey(farm, boardID string) string {
	return fmt.Sprintf("zforge:%s:test_history:%s", farm, boardID)
}

// BuildEventsChannel returns the Pub/Sub channel name for build events.
// Pattern: zforge:{farm}:build_events
func BuildEventsChannel(farm string) string {
	return fmt.Sprintf("zforge:%s:build_events", farm)
}

// TestEventsChannel returns the Pub/Sub channel name for test events.
// Pattern: zforge:{farm}:test_events
func TestEventsChannel(farm string) string {
	return fmt.Sprintf("zforge:%s:test_events", farm)
}
