package observability

type Metrics interface {
	ObserveLookup(source string, cacheMs, remoteMs float64)
	ObserveEnqueue(waitMs float64, ok bool)
	ObserveAppend(attempts int, durMs float64, ok bool)
	ObserveHTTP(method, route string, status int, durMs float64)
	IncCacheHit()
	IncCacheMiss()
	IncCacheStale()
}
