// Package memstore is the in-process resolution cache.
package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/street-resolver/internal/cache"
)

type entry struct {
	val     []byte
	expires time.Time
}

// Store is a size-bounded LRU. The LRU evicts after maxTTL; shorter per-key
// TTLs are enforced on read.
type Store struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

var _ cache.Store = (*Store)(nil)

func New(size int, maxTTL time.Duration) *Store {
	if size <= 0 {
		size = 4096
	}
	return &Store{
		lru: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *Store) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.lru.Add(key, e)
	return nil
}

func (s *Store) DelPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k, prefix) && s.lru.Remove(k) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error {
	s.lru.Purge()
	return nil
}
