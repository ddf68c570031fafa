package database

import (
	"context"
)

// BucketName is the bucket holding the event log.
const BucketName = "events"

// RowKind distinguishes data rows from the diagnostic trailer of a query.
type RowKind int

const (
	RowData RowKind = iota
	RowMeta
)

func (k RowKind) String() string {
	if k == RowMeta {
		return "meta"
	}
	return "data"
}

// Row is one unit of query output.
type Row struct {
	Kind RowKind
	Raw  []byte
}

// Rows is a lazy, ordered sequence of query rows. Callers must Close it.
type Rows interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Querier executes a statement with named parameters against a bucket.
type Querier interface {
	Query(ctx context.Context, statement string, params map[string]any) (Rows, error)
}

// Source hands out the Querier a request should run against. The returned
// release func must be called once the caller is done with the Querier.
type Source interface {
	Acquire(ctx context.Context) (Querier, func(), error)
}

type sharedSource struct {
	q Querier
}

// Shared returns a Source that always yields q. Use it when the bucket is
// opened once at startup and reused by every request.
func Shared(q Querier) Source {
	return &sharedSource{q: q}
}

func (s *sharedSource) Acquire(ctx context.Context) (Querier, func(), error) {
	return s.q, func() {}, nil
}

type perRequestSource struct {
	connector  *Connector
	bucketName string
}

// PerRequest returns a Source that opens a fresh bucket connection for every
// Acquire, running the connector's full retry loop each time. Requests survive
// a bucket that disappears and comes back, at the price of connection latency
// (up to the whole retry budget) on every call.
func PerRequest(c *Connector, bucketName string) Source {
	return &perRequestSource{connector: c, bucketName: bucketName}
}

func (s *perRequestSource) Acquire(ctx context.Context) (Querier, func(), error) {
	b, err := s.connector.Connect(ctx, s.bucketName)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { b.Close() }, nil
}
