package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The products array
// is JSON-encoded into a single hash field; everything else stays a plain
// field so individual values can be inspected with redis-cli.

// BuildRecordToHash converts a BuildRecord to a Redis hash format.
func BuildRecordToHash(r *BuildRecord) (map[string]interface{}, error) {
	productsJSON, err := json.Marshal(r.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal products: %w", err)
	}

	hash := map[string]interface{}{
		"target":          r.Target,
		"variant":         r.Variant,
		"flavor":          r.Flavor,
		"ident":           r.Ident,
		"status":          r.Status,
		"error":           r.Error,
		"products":        string(productsJSON),
		"duration_ms":     r.DurationMs,
		"completed_at_ms": r.CompletedAtMs,
	}

	return hash, nil
}

// HashToBuildRecord converts a Redis hash to a BuildRecord.
func HashToBuildRecord(hash map[string]string) (*BuildRecord, error) {
	var products []string
	if productsJSON := hash["products"]; productsJSON != "" {
		if err := json.Unmarshal([]byte(productsJSON), &products); err != nil {
			return nil, fmt.Errorf("failed to unmarshal products: %w", err)
		}
	}

	durationMs, _ := strconv.ParseInt(hash["duration_ms"], 10, 64)
	completedAtMs, _ := strconv.ParseInt(hash["completed_at_ms"], 10, 64)

	return &BuildRecord{
		Target:        hash["target"],
		Variant:       hash["variant"],
		Flavor:        hash["flavor"],
		Ident:         hash["ident"],
		Status:        hash["status"],
		Error:         hash["error"],
		Products:      products,
		DurationMs:    durationMs,
		CompletedAtMs: completedAtMs,
	}, nil
}

// TestRecordToHash converts a TestRecord to a Redis hash format.
func TestRecordToHash(r *TestRecord) map[string]interface{} {
	return map[string]interface{}{
		"run_id":          r.RunID,
		"board_id":        r.BoardID,
		"target":          r.Target,
		"variant":         r.Variant,
		"outcome":         r.Outcome,
		"reason":          r.Reason,
		"duration_ms":     r.DurationMs,
		"completed_at_ms": r.CompletedAtMs,
	}
}

// HashToTestRecord converts a Redis hash to a TestRecord.
func HashToTestRecord(hash map[string]string) *TestRecord {
	durationMs, _ := strconv.ParseInt(hash["duration_ms"], 10, 64)
	completedAtMs, _ := strconv.ParseInt(hash["completed_at_ms"], 10, 64)

	return &TestRecord{
		RunID:         hash["run_id"],
		BoardID:       hash["board_id"],
		Target:        hash["target"],
		Variant:       hash["variant"],
		Outcome:       hash["outcome"],
		Reason:        hash["reason"],
		DurationMs:    durationMs,
		CompletedAtMs: completedAtMs,
	}
}
