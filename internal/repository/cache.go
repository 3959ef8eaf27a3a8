package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductCache stores product documents in Redis under prefix+hexID.
type ProductCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// NewProductCache creates a cache whose entries expire after ttl.
func NewProductCache(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *ProductCache {
	return &ProductCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ProductCache) key(id primitive.ObjectID) string {
	return c.prefix + id.Hex()
}

// Get returns the cached product, or nil on a miss.
func (c *ProductCache) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, nil
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cache unmarshal error: %w", err)
	}
	c.hits.Add(1)
	return &p, nil
}

// Set stores p under its id.
func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := c.client.Set(ctx, c.key(p.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Delete removes the entries for ids.
func (c *ProductCache) Delete(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Stats returns the hit and miss counters since startup.
func (c *ProductCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Ping checks the Redis connection.
func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *ProductCache) Close() error {
	return c.client.Close()
}

// WithProductCache decorates store so product lookups by id read through cache.
func WithProductCache(store Store, cache *ProductCache) Store {
	return &cachedStore{Store: store, cache: cache}
}

type cachedStore struct {
	Store
	cache *ProductCache
}

func (s *cachedStore) Products() ProductRepository {
	return cachedProducts{next: s.Store.Products(), cache: s.cache}
}

type pendingInvalidationsKey struct{}

type pendingInvalidations struct {
	mu  sync.Mutex
	ids []primitive.ObjectID
}

// WithinTx invalidates every product written by fn again once the unit of
// work has committed. A reader can refill an entry from the last committed
// document between the in-transaction invalidation and the commit.
func (s *cachedStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pendingInvalidationsKey{}).(*pendingInvalidations); ok {
		return s.Store.WithinTx(ctx, fn)
	}

	pending := &pendingInvalidations{}
	err := s.Store.WithinTx(context.WithValue(ctx, pendingInvalidationsKey{}, pending), fn)
	if err != nil {
		return err
	}

	pending.mu.Lock()
	ids := pending.ids
	pending.mu.Unlock()
	if err := s.cache.Delete(context.WithoutCancel(ctx), ids...); err != nil {
		s.cache.logger.Warn("product cache invalidation after commit failed", "count", len(ids), "error", err)
	}
	return nil
}

// cachedProducts never fails a request because of Redis; cache errors are logged.
type cachedProducts struct {
	next  ProductRepository
	cache *ProductCache
}

func (r cachedProducts) Find(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	return r.next.Find(ctx, filter)
}

func (r cachedProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	cached, err := r.cache.Get(ctx, id)
	if err != nil {
		r.cache.logger.Warn("product cache read failed", "product_id", id.Hex(), "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	p, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, p); err != nil {
		r.cache.logger.Warn("product cache write failed", "product_id", id.Hex(), "error", err)
	}
	return p, nil
}

func (r cachedProducts) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	return r.next.FindByIDs(ctx, ids)
}

func (r cachedProducts) Create(ctx context.Context, p *models.Product) error {
	return r.next.Create(ctx, p)
}

func (r cachedProducts) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	updated, err := r.next.Update(ctx, p)
	r.invalidate(ctx, p.ID)
	return updated, err
}

func (r cachedProducts) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	deleted, err := r.next.Delete(ctx, id)
	r.invalidate(ctx, id)
	return deleted, err
}

func (r cachedProducts) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	n, err := r.next.DeleteMany(ctx, ids)
	r.invalidate(ctx, ids...)
	return n, err
}

func (r cachedProducts) invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	if pending, ok := ctx.Value(pendingInvalidationsKey{}).(*pendingInvalidations); ok {
		pending.mu.Lock()
		pending.ids = append(pending.ids, ids...)
		pending.mu.Unlock()
	}
	if err := r.cache.Delete(ctx, ids...); err != nil {
		r.cache.logger.Warn("product cache invalidation failed", "count", len(ids), "error", err)
	}
}
