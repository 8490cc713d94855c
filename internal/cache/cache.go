// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package cache provides a basic key/value store with expiration,
// backed by redis or by memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotExists is returned by [GetJSON] when a key is not in the store.
var ErrNotExists = errors.New("key does not exist")

// Store is a very basic key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Del(ctx context.Context, key string) error
}

// New returns a [Store] for the given source. "memory" (or an empty
// string) returns a [MemStore], a redis URL returns a [RedisStore].
func New(source, prefix string) (Store, error) {
	switch {
	case source == "" || source == "memory":
		return NewMemStore(), nil
	case strings.HasPrefix(source, "redis://"), strings.HasPrefix(source, "rediss://"),
		strings.HasPrefix(source, "unix://"):
		opts, err := redis.ParseURL(source)
		if err != nil {
			return nil, fmt.Errorf("invalid cache source: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), prefix), nil
	}

	return nil, fmt.Errorf("unknown cache source %q", source)
}

// SetJSON stores a value as a JSON string.
func SetJSON(ctx context.Context, s Store, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data), expiration)
}

// GetJSON decodes a JSON value from the store. It returns [ErrNotExists]
// when the key was not found.
func GetJSON(ctx context.Context, s Store, key string, value any) error {
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotExists
	}

	return json.Unmarshal([]byte(data), value)
}

// RedisStore implements [Store] with redis.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore instance. The prefix is used for each
// key operation.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the value for the given key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// Set inserts or replaces the value for the given key.
func (s *RedisStore) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, expiration).Err()
}

// Del removes the given key.
func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// MemStore is a [Store] using an in memory map.
type MemStore struct {
	sync.RWMutex
	data   map[string]string
	timers map[string]*time.Timer
}

// NewMemStore returns a MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data:   make(map[string]string),
		timers: make(map[string]*time.Timer),
	}
}

// Get returns the value for the given key.
func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set inserts or replaces the value for the given key. A zero
// expiration keeps the value until it's removed.
func (s *MemStore) Set(_ context.Context, key, value string, expiration time.Duration) error {
	s.Lock()
	defer s.Unlock()
	s.data[key] = value

	t, ok := s.timers[key]
	switch {
	case expiration <= 0 && ok:
		t.Stop()
		delete(s.timers, key)
	case expiration > 0 && ok:
		t.Reset(expiration)
	case expiration > 0:
		s.timers[key] = time.AfterFunc(expiration, func() {
			s.Lock()
			defer s.Unlock()
			delete(s.data, key)
			delete(s.timers, key)
		})
	}

	return nil
}

// Del removes the given key.
func (s *MemStore) Del(_ context.Context, key string) error {
	s.Lock()
	defer s.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	delete(s.data, key)
	return nil
}

// Clear deletes everything in the memory store.
func (s *MemStore) Clear() {
	s.Lock()
	defer s.Unlock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.data = make(map[string]string)
	s.timers = make(map[string]*time.Timer)
}
