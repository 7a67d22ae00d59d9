package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/cache"
	"github.com/miradorstack/mirador-aiops/internal/models"
)

const dedupKeyPrefix = "mirador-aiops:alert:"

// Deduper suppresses alerts whose DedupKey was already published within ttl.
// Cache failures fail open.
type Deduper struct {
	next   Publisher
	cache  cache.Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewDeduper wraps next. A non-positive ttl disables suppression.
func NewDeduper(next Publisher, provider cache.Provider, ttl time.Duration, logger *slog.Logger) *Deduper {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{next: next, cache: provider, ttl: ttl, logger: logger}
}

// Publish implements Publisher. Duplicates return models.ErrAlertSuppressed.
func (d *Deduper) Publish(ctx context.Context, alert models.Alert) error {
	if d.ttl <= 0 {
		return d.next.Publish(ctx, alert)
	}

	key := dedupKeyPrefix + alert.DedupKey()
	fresh, err := d.cache.SetNX(ctx, key, []byte(alert.ID), d.ttl)
	if err != nil {
		d.logger.Warn("alert dedup unavailable", slog.String("key", key), slog.Any("error", err))
		return d.next.Publish(ctx, alert)
	}
	if !fresh {
		return models.ErrAlertSuppressed
	}

	if err := d.next.Publish(ctx, alert); err != nil {
		if delErr := d.cache.Del(ctx, key); delErr != nil && !errors.Is(delErr, cache.ErrCacheMiss) {
			d.logger.Warn("alert dedup release failed", slog.String("key", key), slog.Any("error", delErr))
		}
		return err
	}
	return nil
}
