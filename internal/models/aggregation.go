package models

// AggregationResult is one row of the per-type event count report.
type AggregationResult struct {
	EventType  string `json:"event_type"`
	EventCount int64  `json:"event_count"`
}
