package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchbase/gocb/v2"
)

type nopQuerier struct{}

func (nopQuerier) Query(ctx context.Context, statement string, params map[string]any) (Rows, error) {
	return nil, errors.New("not implemented")
}

func TestShared_ReturnsSameQuerier(t *testing.T) {
	q := nopQuerier{}
	src := Shared(q)

	got, release, err := src.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()
	if got != (Querier)(q) {
		t.Errorf("Acquire returned %v, want %v", got, q)
	}
}

func TestPerRequest_ConnectsOnEveryAcquire(t *testing.T) {
	captureLogs(t)
	dials := 0
	c := NewConnector("couchbase.db")
	c.dial = func(host string) (bucketOpener, error) {
		dials++
		return &fakeCluster{}, nil
	}
	src := PerRequest(c, BucketName)

	for i := 0; i < 3; i++ {
		q, release, err := src.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: unexpected error: %v", i, err)
		}
		if b, ok := q.(*Bucket); !ok || b.Name() != BucketName {
			t.Errorf("acquire %d: got %#v, want bucket %q", i, q, BucketName)
		}
		release()
	}
	if dials != 3 {
		t.Errorf("dials = %d, want 3", dials)
	}
}

func TestPerRequest_PropagatesExhaustion(t *testing.T) {
	captureLogs(t)
	c := NewConnector("couchbase.db")
	c.Attempts = 3
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	c.dial = func(host string) (bucketOpener, error) {
		return &fakeCluster{failures: 10, err: gocb.ErrAuthenticationFailure}, nil
	}

	_, _, err := PerRequest(c, BucketName).Acquire(context.Background())
	if !errors.Is(err, ErrConnectExhausted) {
		t.Fatalf("expected ErrConnectExhausted, got %v", err)
	}
}

func TestRowKindString(t *testing.T) {
	if RowData.String() != "data" || RowMeta.String() != "meta" {
		t.Errorf("unexpected row kind names: %s, %s", RowData, RowMeta)
	}
}
