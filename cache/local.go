package cache

import (
	"sync"
	"time"
)

// localTier is the in-process fallback. Values and expiries live in two maps
// under one lock; an entry is dead once now is past its expiry whether or not
// it has been physically removed yet.
type localTier struct {
	mu       sync.Mutex
	values   map[string][]byte
	expiries map[string]time.Time
	now      func() time.Time
}

func newLocalTier(now func() time.Time) *localTier {
	if now == nil {
		now = time.Now
	}

	return &localTier{
		values:   make(map[string][]byte),
		expiries: make(map[string]time.Time),
		now:      now,
	}
}

func (l *localTier) get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	value, ok := l.values[key]
	if !ok {
		return nil, false
	}

	if l.now().After(l.expiries[key]) {
		l.removeUnsafe(key)
		return nil, false
	}

	return value, true
}

func (l *localTier) set(key string, value []byte, ttl time.Duration) {
	stored := make([]byte, len(value))
	copy(stored, value)

	l.mu.Lock()
	l.values[key] = stored
	l.expiries[key] = l.now().Add(ttl)
	l.mu.Unlock()
}

func (l *localTier) delete(key string) {
	l.mu.Lock()
	l.removeUnsafe(key)
	l.mu.Unlock()
}

func (l *localTier) deleteMatching(p *Pattern) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key := range l.values {
		if p.Match(key) {
			l.removeUnsafe(key)
			removed++
		}
	}

	return removed
}

func (l *localTier) clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.values)
	l.values = make(map[string][]byte)
	l.expiries = make(map[string]time.Time)

	return n
}

// sweep evicts every entry whose expiry has passed and reports how many.
func (l *localTier) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0

	for key, expiresAt := range l.expiries {
		if now.After(expiresAt) {
			l.removeUnsafe(key)
			removed++
		}
	}

	return removed
}

func (l *localTier) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.values)
}

func (l *localTier) removeUnsafe(key string) {
	delete(l.values, key)
	delete(l.expiries, key)
}
