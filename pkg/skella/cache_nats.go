package skella

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// NATSKVConfig configures a NATS JetStream key/value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Defaults to nats.DefaultURL.
	URL string
	// Bucket is the KV bucket name. It is created when missing.
	Bucket string
	// TTL is the bucket-wide maximum age of values. Zero keeps values forever.
	TTL time.Duration
	// Timeout bounds connection setup.
	Timeout time.Duration
	// Options are passed to nats.Connect.
	Options []nats.Option
}

// NATSKVCache stores entries in a JetStream key/value bucket so the cached
// user record can be shared between processes and machines.
type NATSKVCache struct {
	conn   *nats.Conn
	kv     nats.KeyValue
	bucket string
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	serverURL := config.URL
	if serverURL == "" {
		serverURL = nats.DefaultURL
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = constants.DefaultNATSTimeout
	}

	options := append([]nats.Option{nats.Name("skella"), nats.Timeout(timeout)}, config.Options...)

	conn, err := nats.Connect(serverURL, options...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "skella client cache",
			TTL:         config.TTL,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, kv: kv, bucket: bucket}, nil
}

// Get retrieves an entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	value, err := c.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s from bucket %s: %w", key, c.bucket, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(value.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}

	if entry.Expired() {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(key, data)
	if err != nil {
		return fmt.Errorf("writing %s to bucket %s: %w", key, c.bucket, err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(key)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from bucket %s: %w", key, c.bucket, err)
	}

	return nil
}

// Clear removes all entries.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing bucket %s: %w", c.bucket, err)
	}

	for _, key := range keys {
		err = c.Delete(ctx, key)
		if err != nil {
			return err
		}
	}

	return nil
}

// Has reports whether a live entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the NATS connection.
func (c *NATSKVCache) Close() error {
	err := c.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}
