package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/perrrseus/OpenSaga/internal/errors"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "bucket_results"

type boltEntry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// BoltCache is a file-backed cache for local runs. The file is locked
// exclusively, so a second process fails Open after a one second timeout.
type BoltCache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// NewBoltCache opens (or creates) the cache file at path
func NewBoltCache(path string, ttl time.Duration) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemError(err, "create cache directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &BoltCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get unmarshals the cached value into target. Expired entries are misses.
func (c *BoltCache) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		if v := bucket.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("bolt get failed for key %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}

	var entry boltEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.Value, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON with the cache TTL
func (c *BoltCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	entry := boltEntry{Value: data}
	if c.ttl > 0 {
		entry.ExpiresAt = c.now().Add(c.ttl)
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), encoded)
	})
}

// Purge removes every entry and returns how many there were
func (c *BoltCache) Purge(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.Update(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket([]byte(bucketName)); bucket != nil {
			n = int64(bucket.Stats().KeyN)
			if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	return n, err
}

// Close closes the cache file
func (c *BoltCache) Close() error {
	return c.db.Close()
}
