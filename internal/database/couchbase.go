package database

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
)

// Bucket is an opened handle to a bucket. It is safe for concurrent queries.
type Bucket struct {
	name    string
	cluster *gocb.Cluster
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Query runs a N1QL statement with named parameters. Data rows are yielded in
// the order the server streams them, followed by one meta row carrying the
// query metadata.
func (b *Bucket) Query(ctx context.Context, statement string, params map[string]any) (Rows, error) {
	res, err := b.cluster.Query(statement, &gocb.QueryOptions{
		NamedParameters: params,
		Context:         ctx,
	})
	if err != nil {
		return nil, err
	}
	return &queryRows{res: res}, nil
}

// Close shuts down the cluster client behind the bucket.
func (b *Bucket) Close() error {
	if b.cluster == nil {
		return nil
	}
	return b.cluster.Close(nil)
}

// queryResult is the part of *gocb.QueryResult that queryRows streams from.
type queryResult interface {
	Next() bool
	Row(valuePtr interface{}) error
	Err() error
	MetaData() (*gocb.QueryMetaData, error)
	Close() error
}

type queryRows struct {
	res  queryResult
	row  Row
	err  error
	done bool
}

func (r *queryRows) Next() bool {
	if r.err != nil || r.done {
		return false
	}
	if r.res.Next() {
		var raw json.RawMessage
		if err := r.res.Row(&raw); err != nil {
			r.err = err
			return false
		}
		r.row = Row{Kind: RowData, Raw: raw}
		return true
	}
	if err := r.res.Err(); err != nil {
		r.err = err
		return false
	}

	r.done = true
	meta, err := r.res.MetaData()
	if err != nil {
		r.err = err
		return false
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		r.err = err
		return false
	}
	r.row = Row{Kind: RowMeta, Raw: raw}
	return true
}

func (r *queryRows) Row() Row     { return r.row }
func (r *queryRows) Err() error   { return r.err }
func (r *queryRows) Close() error { return r.res.Close() }

// couchbaseCluster adapts a gocb cluster to bucketOpener.
type couchbaseCluster struct {
	cluster *gocb.Cluster
}

func dialCouchbase(host string) (bucketOpener, error) {
	cluster, err := gocb.Connect(connectionString(host), gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: Username,
			Password: Password,
		},
	})
	if err != nil {
		return nil, err
	}
	return &couchbaseCluster{cluster: cluster}, nil
}

func (c *couchbaseCluster) OpenBucket(ctx context.Context, name string, timeout time.Duration) (*Bucket, error) {
	bucket := c.cluster.Bucket(name)
	if err := bucket.WaitUntilReady(timeout, &gocb.WaitUntilReadyOptions{Context: ctx}); err != nil {
		return nil, err
	}
	return &Bucket{name: name, cluster: c.cluster}, nil
}

func (c *couchbaseCluster) Close() error {
	return c.cluster.Close(nil)
}

// connectionString turns a bare host into a couchbase:// connection string.
func connectionString(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "couchbase://" + host
}
