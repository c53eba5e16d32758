// Package adapter defines the notification boundary for bulk runs.
//
// Adapters publish a completion event to a downstream system once a bulk
// command has finished and its report has been stored.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/imagesources/types"
)

// EventTypeBatchCompleted is the event_type of every published event.
const EventTypeBatchCompleted = "batch_completed"

// BatchCompletedEvent is the payload published when a bulk run finishes.
type BatchCompletedEvent struct {
	EventType   string           `json:"event_type"` // always "batch_completed"
	RunID       string           `json:"run_id"`
	Command     string           `json:"command"`
	Day         string           `json:"day"`
	Counters    map[string]int64 `json:"counters"`
	StoragePath string           `json:"storage_path,omitempty"`
	Timestamp   string           `json:"timestamp"` // RFC 3339
	DurationMs  int64            `json:"duration_ms"`
}

// NewBatchCompletedEvent builds the event for report. storagePath is empty
// when the report was not stored.
func NewBatchCompletedEvent(report types.RunReport, storagePath string, now time.Time) *BatchCompletedEvent {
	return &BatchCompletedEvent{
		EventType:   EventTypeBatchCompleted,
		RunID:       report.RunID,
		Command:     report.Command,
		Day:         report.Day,
		Counters:    report.Counters,
		StoragePath: storagePath,
		Timestamp:   now.UTC().Format(time.RFC3339),
		DurationMs:  report.DurationMs,
	}
}

// Adapter publishes batch completion events to a downstream system.
type Adapter interface {
	// Publish sends a batch completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BatchCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// DefaultBackoff is the delay before the first retry. Each later retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff
// between calls. It stops early when attempt returns an error for which
// permanent reports true. name prefixes returned errors.
func Retry(
	ctx context.Context,
	name string,
	retries int,
	backoff time.Duration,
	permanent func(error) bool,
	attempt func(context.Context) error,
) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff << uint(i-1)):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
