package domain

import "time"

// LocationFailure records why a location was not refreshed in a batch.
type LocationFailure struct {
	LocationID string
	Err        error
}

// BatchSummary reports the outcome of a single scheduler invocation.
type BatchSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stale      int
	Processed  int
	Attempted  int
	Products   int
	Failures   []LocationFailure
}
