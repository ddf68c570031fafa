package models

// Consistency is the ordering token attached to an Event. Events sharing a Key
// are read back in ascending Value order.
type Consistency struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

// Event represents one entry of the event log as stored in the events bucket.
type Event struct {
	Consistency   Consistency `json:"consistency"`
	CorrelationID uint64      `json:"correlation_id"`
	EventType     string      `json:"event_type"`
	MessageType   *string     `json:"message_type,omitempty"`
	Sender        string      `json:"sender"`
	SessionID     *uint64     `json:"session_id,omitempty"`
	Timestamp     string      `json:"timestamp"`               // human readable
	TimestampRaw  *int64      `json:"timestamp_raw,omitempty"` // used for chronological ordering
}

// EventResult is the row envelope returned by a `SELECT *` over the events
// bucket: the document is nested under a field named after the bucket.
type EventResult struct {
	Events Event `json:"events"`
}
