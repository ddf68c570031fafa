package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/jackie/internal/database"
	"github.com/isdelr/jackie/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"
)

var (
	// ErrQueryFailed is returned when a query could not be executed or one of
	// its rows could not be decoded. No partial results accompany it.
	ErrQueryFailed = errors.New("query failed")

	// ErrInvalidArgument is returned before any query is sent.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	recentEventsStatement = "SELECT * FROM `" + database.BucketName + "` " +
		"ORDER BY timestamp_raw DESC LIMIT $limit"

	aggregationsStatement = "SELECT event_type, COUNT(event_type) AS event_count " +
		"FROM `" + database.BucketName + "` " +
		"GROUP BY event_type ORDER BY event_count DESC"

	eventsByConsistencyKeyStatement = "SELECT * FROM `" + database.BucketName + "` " +
		"WHERE consistency.`key` = $key ORDER BY consistency.`value` ASC"

	eventsByCorrelationIDStatement = "SELECT * FROM `" + database.BucketName + "` " +
		"WHERE correlation_id = $correlation_id ORDER BY timestamp_raw ASC"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	GetAggregations(ctx context.Context) ([]models.AggregationResult, error)
	GetEventsByConsistencyKey(ctx context.Context, key string) ([]models.Event, error)
	GetEventsByCorrelationID(ctx context.Context, id uint64) ([]models.Event, error)
}

// EventService runs the read-only event reports against the events bucket.
type EventService struct {
	source  database.Source
	parsers fastjson.ParserPool
}

// NewEventService creates a new EventService.
func NewEventService(source database.Source) *EventService {
	return &EventService{source: source}
}

// GetRecentEvents returns the newest limit events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}
	return runQuery(ctx, s, "recent_events", recentEventsStatement,
		map[string]any{"limit": limit}, decodeEventRow)
}

// GetAggregations returns the number of events per event type, largest first.
func (s *EventService) GetAggregations(ctx context.Context) ([]models.AggregationResult, error) {
	return runQuery(ctx, s, "aggregations", aggregationsStatement, nil, decodeAggregation)
}

// GetEventsByConsistencyKey returns the events of one consistency group in
// ascending consistency value order.
func (s *EventService) GetEventsByConsistencyKey(ctx context.Context, key string) ([]models.Event, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: consistency key must not be empty", ErrInvalidArgument)
	}
	return runQuery(ctx, s, "events_by_consistency_key", eventsByConsistencyKeyStatement,
		map[string]any{"key": key}, decodeEventRow)
}

// GetEventsByCorrelationID returns the events sharing a correlation id in
// chronological order.
func (s *EventService) GetEventsByCorrelationID(ctx context.Context, id uint64) ([]models.Event, error) {
	return runQuery(ctx, s, "events_by_correlation_id", eventsByCorrelationIDStatement,
		map[string]any{"correlation_id": id}, decodeEventRow)
}

// runQuery executes statement and decodes every data row in the order the
// store emits them. The first failure aborts the whole operation. A query
// matching nothing yields an empty, non-nil slice.
func runQuery[T any](ctx context.Context, s *EventService, op, statement string, params map[string]any,
	decode func(*fastjson.Parser, []byte) (T, error)) ([]T, error) {
	q, release, err := s.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := q.Query(ctx, statement, params)
	if err != nil {
		return nil, queryFailed(op, err)
	}
	defer rows.Close()

	p := s.parsers.Get()
	defer s.parsers.Put(p)

	results := []T{}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, queryFailed(op, err)
		}
		row := rows.Row()
		if row.Kind == database.RowMeta {
			log.Debug().Str("op", op).Bytes("meta", row.Raw).Msg("Raw meta received")
			continue
		}
		log.Debug().Str("op", op).Bytes("row", row.Raw).Msg("Raw row received")

		result, err := decode(p, row.Raw)
		if err != nil {
			return nil, queryFailed(op, fmt.Errorf("decoding row %d: %w", len(results), err))
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(op, err)
	}
	return results, nil
}

func queryFailed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrQueryFailed, err)
}
