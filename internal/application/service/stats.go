package service

import "time"

type LookupSource string

const (
	SourceFresh  LookupSource = "fresh"
	SourceStale  LookupSource = "stale"
	SourceRemote LookupSource = "remote"
)

type ProductStats struct {
	Source   LookupSource
	CacheMs  float64
	RemoteMs float64
	Age      time.Duration
}

type SubmitStats struct {
	QueueMs float64
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
