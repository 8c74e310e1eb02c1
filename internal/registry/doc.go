// Package registry provides type-safe Go definitions and Redis schema
// patterns for the zforge build farm registry.
//
// # Overview
//
// The registry is the shared state each build host and bench runner reports
// into: the latest build per (target, variant) pair and the outcome of every
// hardware test run. Dashboards and `zforge watch` consume the same data
// live over Pub/Sub.
//
// # Multi-Farm Support
//
// All Redis keys and Pub/Sub channels are namespaced by farm name so several
// lab setups can share one Redis server without interference.
//
// # Redis Schema
//
// Builds:        zforge:{farm}:build:{target}:{variant}
// Build index:   zforge:{farm}:builds
// Test runs:     zforge:{farm}:test:{run_id}
// Test history:  zforge:{farm}:test_history:{board_id}
//
// Pub/Sub channels:
//
// Build events:  zforge:{farm}:build_events
// Test events:   zforge:{farm}:test_events
package registry
