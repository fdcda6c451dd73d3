// Package cache memoizes converter output in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
	"pdfrelay/internal/infra/logging"
)

const (
	keyPrefix  = "pdfcache:"
	defaultTTL = time.Minute
	opTimeout  = time.Second
)

// Converter serves repeated markup from Redis and falls through to next on a
// miss. Redis failures never fail a conversion.
type Converter struct {
	next   domain.Converter
	rdb    *redis.Client
	ttl    time.Duration
	layout string
}

func NewConverter(next domain.Converter, rdb *redis.Client, cfg config.Config) *Converter {
	m := cfg.Converter.Margin
	layout := cfg.Converter.Backend + "|" + boolStr(cfg.Converter.Landscape) + boolStr(cfg.Converter.UsePrint) +
		"|" + m.Top + "," + m.Right + "," + m.Bottom + "," + m.Left
	return &Converter{
		next:   next,
		rdb:    rdb,
		ttl:    cfg.Cache.PDFCacheTTL,
		layout: layout,
	}
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Key is the cache key for markup under the configured layout.
func (c *Converter) Key(markup string) string {
	h := sha256.New()
	h.Write([]byte(markup))
	h.Write([]byte{0})
	h.Write([]byte(c.layout))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Converter) Convert(ctx context.Context, markup string) ([]byte, error) {
	key := c.Key(markup)
	if cached, ok := c.get(ctx, key); ok {
		logging.Info("PDF cache hit", "key", key)
		return cached, nil
	}

	pdf, err := c.next.Convert(ctx, markup)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, pdf)
	return pdf, nil
}

func (c *Converter) get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	cached, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	return cached, true
}

func (c *Converter) set(ctx context.Context, key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	ttl := c.ttl
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
