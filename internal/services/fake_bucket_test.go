package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/isdelr/jackie/internal/database"
)

// memBucket is an in-memory stand-in for the events bucket. It understands the
// four report statements and evaluates them over docs.
type memBucket struct {
	docs []map[string]any

	rows      []database.Row // when set, returned instead of evaluating the statement
	queryErr  error
	streamErr error

	statements []string
	params     []map[string]any
}

func (m *memBucket) Query(ctx context.Context, statement string, params map[string]any) (database.Rows, error) {
	m.statements = append(m.statements, statement)
	m.params = append(m.params, params)
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var rows []database.Row
	if m.rows != nil {
		rows = append(rows, m.rows...)
	} else {
		var err error
		if rows, err = m.evaluate(statement, params); err != nil {
			return nil, err
		}
	}
	rows = append(rows, database.Row{Kind: database.RowMeta, Raw: []byte(`{"status":"success"}`)})
	return &sliceRows{rows: rows, err: m.streamErr}, nil
}

func (m *memBucket) evaluate(statement string, params map[string]any) ([]database.Row, error) {
	docs := append([]map[string]any(nil), m.docs...)
	switch statement {
	case recentEventsStatement:
		sort.SliceStable(docs, func(i, j int) bool { return tsRaw(docs[i]) > tsRaw(docs[j]) })
		if limit := params["limit"].(int); limit < len(docs) {
			docs = docs[:limit]
		}
		return wrapped(docs), nil

	case aggregationsStatement:
		counts := map[string]int64{}
		var order []string
		for _, d := range docs {
			t, _ := d["event_type"].(string)
			if _, ok := counts[t]; !ok {
				order = append(order, t)
			}
			counts[t]++
		}
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		var rows []database.Row
		for _, t := range order {
			rows = append(rows, dataRow(map[string]any{"event_type": t, "event_count": counts[t]}))
		}
		return rows, nil

	case eventsByConsistencyKeyStatement:
		var out []map[string]any
		for _, d := range docs {
			if d["consistency"].(map[string]any)["key"] == params["key"] {
				out = append(out, d)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return consValue(out[i]) < consValue(out[j]) })
		return wrapped(out), nil

	case eventsByCorrelationIDStatement:
		var out []map[string]any
		for _, d := range docs {
			if d["correlation_id"] == params["correlation_id"] {
				out = append(out, d)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return tsRaw(out[i]) < tsRaw(out[j]) })
		return wrapped(out), nil
	}
	return nil, fmt.Errorf("unknown statement %q", statement)
}

func tsRaw(d map[string]any) int64 {
	n, _ := d["timestamp_raw"].(int64)
	return n
}

func consValue(d map[string]any) uint64 {
	return d["consistency"].(map[string]any)["value"].(uint64)
}

func wrapped(docs []map[string]any) []database.Row {
	rows := make([]database.Row, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, dataRow(map[string]any{database.BucketName: d}))
	}
	return rows
}

func dataRow(v any) database.Row {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return database.Row{Kind: database.RowData, Raw: raw}
}

// eventDoc builds a stored event document.
func eventDoc(key string, value, correlationID uint64, eventType string, timestampRaw int64) map[string]any {
	return map[string]any{
		"consistency":    map[string]any{"key": key, "value": value},
		"correlation_id": correlationID,
		"event_type":     eventType,
		"message_type":   nil,
		"sender":         "billing",
		"session_id":     uint64(42),
		"timestamp":      fmt.Sprintf("2017-06-01 12:00:%02d", timestampRaw%60),
		"timestamp_raw":  timestampRaw,
	}
}

type sliceRows struct {
	rows   []database.Row
	i      int
	err    error
	closed bool
}

func (r *sliceRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *sliceRows) Row() database.Row { return r.rows[r.i-1] }

func (r *sliceRows) Err() error {
	if r.i >= len(r.rows) {
		return r.err
	}
	return nil
}

func (r *sliceRows) Close() error {
	r.closed = true
	return nil
}
