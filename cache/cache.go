// Package cache - кэш готовых страниц ленты.
package cache

import (
	"context"
	"time"

	"blog/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache хранит неизменяемые байтовые значения с TTL.
// Отсутствие ключа - не ошибка: Get возвращает ok=false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// PageCache - Cache плюс GetOrCompute со склейкой одновременных промахов по ключу
type PageCache struct {
	backend Cache
	name    string
	flight  singleflight.Group
}

func NewPageCache(name string, backend Cache) *PageCache {
	return &PageCache{backend: backend, name: name}
}

func (p *PageCache) Backend() Cache {
	return p.backend
}

// GetOrCompute отдает значение из кэша, а при промахе вычисляет, кладет на ttl и отдает.
// Ошибки бэкенда не роняют запрос: значение просто вычисляется заново.
func (p *PageCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	value, ok, err := p.backend.Get(ctx, key)
	if err != nil {
		logger.L.Warn("Cache get failed", zap.String("cache", p.name), zap.String("key", key), zap.Error(err))
	}
	if ok {
		cacheRequests.WithLabelValues(p.name, "hit").Inc()
		return value, nil
	}
	cacheRequests.WithLabelValues(p.name, "miss").Inc()

	// общее вычисление не зависит от отмены запроса, который его начал
	shared := context.WithoutCancel(ctx)
	ch := p.flight.DoChan(key, func() (interface{}, error) {
		computed, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if err := p.backend.Set(shared, key, computed, ttl); err != nil {
			logger.L.Warn("Cache set failed", zap.String("cache", p.name), zap.String("key", key), zap.Error(err))
		}
		return computed, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (p *PageCache) Clear(ctx context.Context) error {
	return p.backend.Clear(ctx)
}
