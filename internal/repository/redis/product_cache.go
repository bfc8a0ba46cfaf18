package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
)

const keyPrefix = "product:"

// ProductCache implements domain.ProductRepository by caching snapshots from
// another repository in Redis. Redis failures are logged and the read falls
// through to the wrapped repository.
type ProductCache struct {
	client *redis.Client
	next   domain.ProductRepository
	ttl    time.Duration
	logger *slog.Logger
}

var _ domain.ProductRepository = (*ProductCache)(nil)

// NewProductCache creates a Redis-backed cache in front of next.
func NewProductCache(client *redis.Client, next domain.ProductRepository, ttl time.Duration, logger *slog.Logger) *ProductCache {
	return &ProductCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// GetByID returns the cached snapshot or loads and caches it.
func (c *ProductCache) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	switch {
	case err == nil:
		var p domain.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		c.logger.Warn("discarding corrupt cached product", slog.String("product_id", id))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, *p)
	return p, nil
}

// ListByIDs serves what it can from Redis and loads the rest in one call.
func (c *ProductCache) ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	products := make([]domain.Product, 0, len(ids))
	missing := ids

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("product cache multi-read failed", slog.String("error", err.Error()))
	} else {
		missing = nil
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var p domain.Product
			if err := json.Unmarshal([]byte(s), &p); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			products = append(products, p)
		}
	}

	if len(missing) == 0 {
		return products, nil
	}

	loaded, err := c.next.ListByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.store(ctx, loaded...)
	return append(products, loaded...), nil
}

// Invalidate drops the cached snapshot for id.
func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}

func (c *ProductCache) store(ctx context.Context, products ...domain.Product) {
	if len(products) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.Set(ctx, keyPrefix+p.ID, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("product cache write failed",
			slog.Int("count", len(products)),
			slog.String("error", err.Error()),
		)
	}
}
