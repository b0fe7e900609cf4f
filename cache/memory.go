package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxEntries - сколько ключей держит MemoryCache до чистки
	DefaultMaxEntries = 300
	// при переполнении выбрасывается каждый cullFrequency-й живой ключ
	cullFrequency = 3
	sweepInterval = time.Minute
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache - кэш процесса на sync.Map: чтения без блокировок, истечение ленивое.
// Просроченные ключи вычищаются на Set раз в sweepInterval, а при достижении
// maxEntries кэш сначала выбрасывает просроченное, затем часть живых ключей.
type MemoryCache struct {
	items      sync.Map
	size       atomic.Int64
	maxEntries int64
	now        func() time.Time

	sweepMu   sync.Mutex
	lastSweep atomic.Int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now, maxEntries: DefaultMaxEntries}
}

// WithClock подменяет часы (для тестов истечения TTL)
func (m *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	m.now = now
	return m
}

// WithMaxEntries задает предел числа ключей; n <= 0 оставляет значение по умолчанию
func (m *MemoryCache) WithMaxEntries(n int) *MemoryCache {
	if n > 0 {
		m.maxEntries = int64(n)
	}
	return m
}

// Len - число хранимых ключей, включая еще не вычищенные просроченные
func (m *MemoryCache) Len() int {
	return int(m.size.Load())
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := m.items.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := raw.(*memoryEntry)
	if !m.now().Before(entry.expires) {
		if m.items.CompareAndDelete(key, raw) {
			m.size.Add(-1)
		}
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set с ttl <= 0 ничего не сохраняет
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return m.Delete(ctx, key)
	}
	m.maintain()
	_, loaded := m.items.Swap(key, &memoryEntry{
		value:   append([]byte(nil), value...),
		expires: m.now().Add(ttl),
	})
	if !loaded {
		m.size.Add(1)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	if _, loaded := m.items.LoadAndDelete(key); loaded {
		m.size.Add(-1)
	}
	return nil
}

func (m *MemoryCache) Clear(_ context.Context) error {
	m.items.Range(func(key, _ interface{}) bool {
		if _, loaded := m.items.LoadAndDelete(key); loaded {
			m.size.Add(-1)
		}
		return true
	})
	return nil
}

// maintain чистит кэш перед записью. Одновременно чистит только один писатель,
// остальные не ждут.
func (m *MemoryCache) maintain() {
	now := m.now()
	full := m.size.Load() >= m.maxEntries
	if !full && now.Sub(time.Unix(0, m.lastSweep.Load())) < sweepInterval {
		return
	}
	if !m.sweepMu.TryLock() {
		return
	}
	defer m.sweepMu.Unlock()

	m.lastSweep.Store(now.UnixNano())
	m.sweepExpired(now)
	if m.size.Load() >= m.maxEntries {
		m.cull()
	}
}

func (m *MemoryCache) sweepExpired(now time.Time) {
	m.items.Range(func(key, raw interface{}) bool {
		if !now.Before(raw.(*memoryEntry).expires) && m.items.CompareAndDelete(key, raw) {
			m.size.Add(-1)
		}
		return true
	})
}

func (m *MemoryCache) cull() {
	i := 0
	m.items.Range(func(key, _ interface{}) bool {
		if i%cullFrequency == 0 {
			if _, loaded := m.items.LoadAndDelete(key); loaded {
				m.size.Add(-1)
			}
		}
		i++
		return true
	})
}
