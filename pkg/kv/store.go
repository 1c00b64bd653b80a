// Package kv provides the hosted key-value store backing reviews, donation
// records, contact messages, and user plans. Values are stored as JSON blobs
// under string keys; key prefixes ("review:", "donation:", …) partition the
// record types.
package kv

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store is a thin JSON layer over a Redis client.
type Store struct {
	client redis.UniversalClient
}

// NewStore wraps an established Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// SetJSON marshals v and stores it under key. Records have no TTL; the store
// is the system of record for the data it holds.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

// GetJSON loads the value under key into dst. Returns ErrNotFound when the
// key does not exist.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

// Delete removes the value under key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// GetByPrefix returns the raw JSON values of every key starting with prefix.
// Order is unspecified; callers sort as needed.
func (s *Store) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, 0, len(raw))
	for _, v := range raw {
		// Keys can disappear between SCAN and MGET.
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			values = append(values, []byte(str))
		}
	}
	return values, nil
}
