package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// Username and Password are the fixed credentials of the reporting user.
	Username = "connect"
	Password = "connect"

	DefaultAttempts = 60
	DefaultInterval = 1000 * time.Millisecond
	// DefaultReadyTimeout bounds a single open attempt so that attempts stay
	// one Interval apart.
	DefaultReadyTimeout = DefaultInterval

	// bucketNotReady is the retry reason gocb reports while a bucket that does
	// not exist (yet) cannot be selected.
	bucketNotReady = "BUCKET_NOT_READY"
)

// ErrConnectExhausted is returned when the bucket could not be opened within
// the retry budget.
var ErrConnectExhausted = errors.New("bucket connection retries exhausted")

// bucketOpener is a cluster client able to open buckets on it.
type bucketOpener interface {
	OpenBucket(ctx context.Context, name string, timeout time.Duration) (*Bucket, error)
	Close() error
}

// Connector opens buckets on a cluster, waiting for buckets that do not exist
// yet (e.g. while the cluster is still being provisioned).
type Connector struct {
	Host         string
	Attempts     int
	Interval     time.Duration
	ReadyTimeout time.Duration

	dial  func(host string) (bucketOpener, error)
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewConnector creates a Connector for host with the default retry policy.
func NewConnector(host string) *Connector {
	return &Connector{
		Host:         host,
		Attempts:     DefaultAttempts,
		Interval:     DefaultInterval,
		ReadyTimeout: DefaultReadyTimeout,
		dial:         dialCouchbase,
		sleep:        sleepContext,
		now:          time.Now,
	}
}

// Connect opens bucketName, starting a new attempt every Interval up to
// Attempts times. Each call runs its own retry loop; Connector holds no state
// between calls.
func (c *Connector) Connect(ctx context.Context, bucketName string) (*Bucket, error) {
	if bucketName == "" {
		return nil, errors.New("bucket name must not be empty")
	}
	connID := uuid.New().String()

	cluster, err := c.dial(c.Host)
	if err != nil {
		return nil, fmt.Errorf("creating cluster client for %s: %w", c.Host, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.Attempts; attempt++ {
		started := c.now()
		bucket, err := cluster.OpenBucket(ctx, bucketName, c.attemptTimeout())
		if err == nil {
			log.Info().Str("connection_id", connID).Str("bucket", bucketName).Int("attempt", attempt).
				Msg("Successfully connected to couchbase bucket")
			return bucket, nil
		}
		lastErr = err
		remaining := c.Attempts - attempt

		if isBucketMissing(err) {
			log.Warn().Str("connection_id", connID).Str("bucket", bucketName).Int("retries_remaining", remaining).
				Msg("The bucket does not exist, waiting for it to be created")
		} else {
			log.Error().Err(err).Str("connection_id", connID).Str("bucket", bucketName).Str("host", c.Host).
				Int("retries_remaining", remaining).Msg("Failed to connect to couchbase")
		}

		if remaining == 0 {
			break
		}
		if wait := c.Interval - c.now().Sub(started); wait > 0 {
			if err := c.sleep(ctx, wait); err != nil {
				cluster.Close()
				return nil, fmt.Errorf("connecting to bucket %s: %w", bucketName, err)
			}
		} else if err := ctx.Err(); err != nil {
			cluster.Close()
			return nil, fmt.Errorf("connecting to bucket %s: %w", bucketName, err)
		}
	}

	cluster.Close()
	log.Error().Err(lastErr).Str("connection_id", connID).Str("bucket", bucketName).Int("attempts", c.Attempts).
		Msg("Error even after retries")
	return nil, fmt.Errorf("%w: bucket %s after %d attempts: %w", ErrConnectExhausted, bucketName, c.Attempts, lastErr)
}

func (c *Connector) attemptTimeout() time.Duration {
	if c.ReadyTimeout <= 0 || c.ReadyTimeout > c.Interval {
		return c.Interval
	}
	return c.ReadyTimeout
}

// isBucketMissing reports whether err means the bucket does not exist yet.
// The server answers a select of an unknown bucket with an authentication
// failure; WaitUntilReady hides it behind a timeout carrying the retry reasons.
func isBucketMissing(err error) bool {
	if errors.Is(err, gocb.ErrAuthenticationFailure) || errors.Is(err, gocb.ErrBucketNotFound) {
		return true
	}
	var timeoutErr *gocb.TimeoutError
	if !errors.As(err, &timeoutErr) {
		return false
	}
	for _, reason := range timeoutErr.RetryReasons {
		if reason != nil && reason.Description() == bucketNotReady {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
