// Package cache stores rendered PDFs in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/logging"
)

const (
	keyPrefix = "pdfcache:"
	opTimeout = time.Second
)

// NewRedisClient returns a client for addr, or nil when addr is empty.
func NewRedisClient(addr string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}

// PDFCache is a read-through cache for rendered documents. A nil *PDFCache or
// one without a client misses on every lookup and drops every write.
type PDFCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPDFCache(rdb *redis.Client, ttl time.Duration) *PDFCache {
	return &PDFCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for req rendered by engine on the given day. The
// footer carries the render date, so a cached copy is only valid that day.
func Key(engine string, req domain.GenerationRequest, day time.Time) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	h.Write([]byte(day.Format("2006-01-02")))
	h.Write([]byte{0})
	h.Write([]byte(req.Title))
	h.Write([]byte{0})
	h.Write([]byte(req.Content))
	h.Write([]byte{0})
	h.Write([]byte(req.Logo))
	for _, img := range req.Images {
		h.Write([]byte{0})
		h.Write([]byte(img))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached PDF for key. Redis errors are logged and reported
// as a miss.
func (c *PDFCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cached, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	logging.Info("PDF cache hit", "key", key)
	return cached, true
}

// Set stores data under key for the configured TTL.
func (c *PDFCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
