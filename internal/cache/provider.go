// Package cache holds the key/value backends used for alert deduplication.
package cache

import (
	"context"
	"errors"
	"time"
)

// Provider is a byte-oriented key/value store with per-key expiry. SetNX is
// the claim primitive: it stores only when the key is absent and reports
// whether this caller won the claim.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

var (
	_ Provider = NoopProvider{}
	_ Provider = (*MemoryProvider)(nil)
	_ Provider = (*ValkeyProvider)(nil)
)

// NoopProvider stores nothing. Every SetNX claim succeeds, so deduplication
// is effectively disabled when it is selected.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
