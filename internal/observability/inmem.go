package observability

import "sync"

// Inmem keeps the last max observations in memory plus running totals.
// Enough for the admin endpoints; a real metrics backend can replace it
// behind the Metrics interface.
type Inmem struct {
	mu     sync.Mutex
	last   []any
	max    int
	totals struct {
		cacheHits, cacheMiss, cacheStale int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveLookup(source string, cacheMs, remoteMs float64) {
	m.push(struct {
		Kind              string
		Source            string
		CacheMs, RemoteMs float64
	}{"lookup", source, cacheMs, remoteMs})
}

func (m *Inmem) ObserveEnqueue(waitMs float64, ok bool) {
	m.push(struct {
		Kind   string
		WaitMs float64
		OK     bool
	}{"enqueue", waitMs, ok})
}

func (m *Inmem) ObserveAppend(attempts int, durMs float64, ok bool) {
	m.push(struct {
		Kind     string
		Attempts int
		Dur      float64
		OK       bool
	}{"append", attempts, durMs, ok})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(struct {
		Kind          string
		Method, Route string
		Status        int
		Dur           float64
	}{"http", method, route, status, durMs})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheStale() {
	m.mu.Lock()
	m.totals.cacheStale++
	m.mu.Unlock()
}

// CacheTotals returns hit/miss/stale counters since start.
func (m *Inmem) CacheTotals() (hits, misses, stale int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheHits, m.totals.cacheMiss, m.totals.cacheStale
}
