package domain

import "time"

// DateLayout is the on-disk format of tracking and retrieval dates.
const DateLayout = "2006-01-02"

// LocationTrackingRecord holds the refresh state of a single store location.
type LocationTrackingRecord struct {
	LocationID string
	// LastRetrievedDate is kept verbatim so a corrupted value survives a
	// rewrite of the table; empty means never retrieved.
	LastRetrievedDate string
	SuccessfulCalls   int
	NeedsData         bool
}

// NewLocationTrackingRecord seeds a record for a location that was never retrieved.
func NewLocationTrackingRecord(locationID string) LocationTrackingRecord {
	return LocationTrackingRecord{
		LocationID: locationID,
		NeedsData:  true,
	}
}

// MarkRetrieved stamps the record with the retrieval day and bumps the counter.
// A record retrieved today is fresh for any positive threshold.
func (r *LocationTrackingRecord) MarkRetrieved(now time.Time) {
	r.LastRetrievedDate = now.Format(DateLayout)
	r.SuccessfulCalls++
	r.NeedsData = false
}
