package cache

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Layered fronts a persistent cache with an in-process LRU of encoded values.
// A nil backing cache makes it memory only.
type Layered struct {
	front *lru.Cache[string, []byte]
	back  Cache
}

// NewLayered creates an LRU of the given size in front of back
func NewLayered(size int, back Cache) (*Layered, error) {
	front, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Layered{front: front, back: back}, nil
}

// Get checks the LRU first and promotes backing hits into it
func (l *Layered) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	if data, ok := l.front.Get(key); ok {
		if err := json.Unmarshal(data, target); err != nil {
			return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
		}
		return true, nil
	}
	if l.back == nil {
		return false, nil
	}

	var raw json.RawMessage
	hit, err := l.back.Get(ctx, key, &raw)
	if err != nil || !hit {
		return false, err
	}
	l.front.Add(key, raw)

	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return true, nil
}

// Set writes through to both layers
func (l *Layered) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	l.front.Add(key, data)

	if l.back == nil {
		return nil
	}
	return l.back.Set(ctx, key, json.RawMessage(data))
}

// Len returns the number of entries held in memory
func (l *Layered) Len() int {
	return l.front.Len()
}

// Purge empties the LRU and the backing cache. The count is the backing
// cache's when it can purge, otherwise the number of in-memory entries.
func (l *Layered) Purge(ctx context.Context) (int64, error) {
	n := int64(l.front.Len())
	l.front.Purge()

	if p, ok := l.back.(Purger); ok {
		return p.Purge(ctx)
	}
	return n, nil
}

// Close closes the backing cache
func (l *Layered) Close() error {
	l.front.Purge()
	if l.back == nil {
		return nil
	}
	return l.back.Close()
}
