package kvstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrKeyNotFound is returned by buckets for missing keys.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Bucket is a flat key-value namespace.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// MemBucket is an in-memory Bucket.
type MemBucket struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemBucket returns an empty bucket.
func NewMemBucket() *MemBucket {
	return &MemBucket{data: make(map[string][]byte)}
}

// Get implements Bucket.
func (b *MemBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Put implements Bucket.
func (b *MemBucket) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = slices.Clone(value)
	return nil
}

// Keys returns the stored keys with the given prefix, sorted.
func (b *MemBucket) Keys(prefix string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for _, k := range slices.Sorted(maps.Keys(b.data)) {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// JetStreamBucket is a Bucket backed by a NATS JetStream key-value bucket.
type JetStreamBucket struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// NewJetStreamBucket wraps an open key-value bucket.
func NewJetStreamBucket(kv jetstream.KeyValue) *JetStreamBucket {
	return &JetStreamBucket{kv: kv}
}

// OpenJetStream connects to url and opens (creating if needed) the named
// bucket. Close releases the connection.
func OpenJetStream(ctx context.Context, url, bucket string) (*JetStreamBucket, error) {
	nc, err := nats.Connect(url, nats.Name("polystore"))
	if err != nil {
		return nil, fmt.Errorf("kvstore: connect %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kvstore: jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "polystore entities",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kvstore: bucket %s: %w", bucket, err)
	}
	return &JetStreamBucket{kv: kv, nc: nc}, nil
}

// Get implements Bucket.
func (b *JetStreamBucket) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Put implements Bucket.
func (b *JetStreamBucket) Put(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// Close closes the connection opened by OpenJetStream.
func (b *JetStreamBucket) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}

var (
	_ Bucket = (*MemBucket)(nil)
	_ Bucket = (*JetStreamBucket)(nil)
)
