package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides farm-scoped Redis operations for the build registry.
// All keys and channels are automatically namespaced with the farm name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb  *redis.Client
	farm string
}

// NewClient creates a registry client for the specified farm.
// Returns an error if farm is empty.
func NewClient(redisOpts *redis.Options, farm string) (*Client, error) {
	if farm == "" {
		return nil, fmt.Errorf("farm name cannot be empty")
	}

	return &Client{
		rdb:  redis.NewClient(redisOpts),
		farm: farm,
	}, nil
}

// NewClientFromURL creates a registry client from a redis:// URL.
func NewClientFromURL(url, farm string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	return NewClient(opts, farm)
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RecordBuild writes the latest build record for a pair and publishes an
// event. The pair is added to the build index so ListBuilds can find it.
// Re-recording a pair replaces the previous record.
func (c *Client) RecordBuild(ctx context.Context, record *BuildRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid build record: %w", err)
	}

	hash, err := BuildRecordToHash(record)
	if err != nil {
		return fmt.Errorf("failed to serialize build record: %w", err)
	}

	key := BuildKey(c.farm, record.Target, record.Variant)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write build record to Redis: %w", err)
	}

	if err := c.rdb.SAdd(ctx, BuildIndexKey(c.farm), record.Pair()).Err(); err != nil {
		return fmt.Errorf("failed to index build record: %w", err)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal build record for event: %w", err)
	}

	channel := BuildEventsChannel(c.farm)
	if err := c.rdb.Publish(ctx, channel, recordJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish build event: %w", err)
	}

	return nil
}

// GetBuild retrieves the latest build record for a pair.
// Returns (nil, redis.Nil) if the pair has never been recorded.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetBuild(ctx context.Context, target, variant string) (*BuildRecord, error) {
	key := BuildKey(c.farm, target, variant)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read build record from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToBuildRecord(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize build record: %w", err)
	}

	return record, nil
}

// ListBuilds retrieves every recorded build, sorted by pair for stable output.
func (c *Client) ListBuilds(ctx context.Context) ([]*BuildRecord, error) {
	pairs, err := c.rdb.SMembers(ctx, BuildIndexKey(c.farm)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read build index: %w", err)
	}
	sort.Strings(pairs)

	records := make([]*BuildRecord, 0, len(pairs))
	for _, pair := range pairs {
		target, variant, ok := splitPair(pair)
		if !ok {
			continue
		}

		record, err := c.GetBuild(ctx, target, variant)
		if err != nil {
			if IsNotFound(err) {
				// Index entry without a record; skip rather than fail the listing
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// RecordTest writes a test run record, appends it to the board's history
// and publishes an event.
func (c *Client) RecordTest(ctx context.Context, record *TestRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid test record: %w", err)
	}

	key := TestKey(c.farm, record.RunID)
	if err := c.rdb.HSet(ctx, key, TestRecordToHash(record)).Err(); err != nil {
		return fmt.Errorf("failed to write test record to Redis: %w", err)
	}

	z := redis.Z{
		Score:  float64(record.CompletedAtMs),
		Member: record.RunID,
	}
	if err := c.rdb.ZAdd(ctx, TestHistoryKey(c.farm, record.BoardID), z).Err(); err != nil {
		return fmt.Errorf("failed to append test history: %w", err)
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal test record for event: %w", err)
	}

	channel := TestEventsChannel(c.farm)
	if err := c.rdb.Publish(ctx, channel, recordJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish test event: %w", err)
	}

	return nil
}

// GetTest retrieves a test run by ID.
// Returns (nil, redis.Nil) if the run doesn't exist.
func (c *Client) GetTest(ctx context.Context, runID string) (*TestRecord, error) {
	key := TestKey(c.farm, runID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read test record from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToTestRecord(hashData), nil
}

// LatestTests retrieves a board's most recent runs, newest first.
// Returns an empty slice if the board has no history.
func (c *Client) LatestTests(ctx context.Context, boardID string, n int64) ([]*TestRecord, error) {
	if n <= 0 {
		n = 10
	}

	runIDs, err := c.rdb.ZRevRange(ctx, TestHistoryKey(c.farm, boardID), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read test history: %w", err)
	}

	records := make([]*TestRecord, 0, len(runIDs))
	for _, runID := range runIDs {
		record, err := c.GetTest(ctx, runID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// ScanTests returns the run IDs of recorded test runs whose ID starts
// with prefix, in unspecified order. Short run ID resolution uses this;
// an empty prefix enumerates every recorded run.
func (c *Client) ScanTests(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := TestKey(c.farm, "")
	pattern := TestKey(c.farm, prefix) + "*"

	var runIDs []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan test records: %w", err)
		}
		for _, key := range keys {
			runIDs = append(runIDs, strings.TrimPrefix(key, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			return runIDs, nil
		}
	}
}

// BuildSubscription represents an active Pub/Sub subscription to build events.
// Caller must call Close() when done to clean up resources.
type BuildSubscription struct {
	events <-chan *BuildRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of build events.
// The channel is closed when the subscription closes or the context is cancelled.
func (s *BuildSubscription) Events() <-chan *BuildRecord {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - messages are skipped.
func (s *BuildSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *BuildSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// TestSubscription represents an active Pub/Sub subscription to test events.
type TestSubscription struct {
	events <-chan *TestRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of test events.
func (s *TestSubscription) Events() <-chan *TestRecord {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *TestSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
func (s *TestSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeBuildEvents subscribes to build record events for this farm.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// Slow subscribers may miss events; Redis Pub/Sub is at-most-once.
func (c *Client) SubscribeBuildEvents(ctx context.Context) (*BuildSubscription, error) {
	channel := BuildEventsChannel(c.farm)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *BuildRecord, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var record BuildRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal build event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &record:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &BuildSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// SubscribeTestEvents subscribes to test run events for this farm.
// Caller must call subscription.Close() when done.
func (c *Client) SubscribeTestEvents(ctx context.Context) (*TestSubscription, error) {
	channel := TestEventsChannel(c.farm)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *TestRecord, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var record TestRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal test event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &record:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &TestSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetBuild or GetTest returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// splitPair splits "target/variant" back into its parts.
func splitPair(pair string) (target, variant string, ok bool) {
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
