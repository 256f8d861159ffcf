package cache

import "time"

// CachedFace is a cached embedding extraction result
type CachedFace struct {
	Embedding      []float32 `json:"embedding"`
	DetectionScore float32   `json:"detection_score"`
	CachedAt       time.Time `json:"cached_at"`
}

// Stats represents cache performance counters
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}
