package observability

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveLookup(string, float64, float64)   {}
func (Noop) ObserveEnqueue(float64, bool)             {}
func (Noop) ObserveAppend(int, float64, bool)         {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
func (Noop) IncCacheStale()                           {}
