package models

import "time"

// EngineMetrics is a point-in-time summary of engine activity.
type EngineMetrics struct {
	RequestsTotal uint64    `json:"requests_total"`
	Validations   uint64    `json:"validations"`
	Applied       uint64    `json:"applied"`
	Aborted       uint64    `json:"aborted"`
	CommitRaces   uint64    `json:"commit_races"`
	CacheHitRatio float64   `json:"cache_hit_ratio"`
	Goroutines    int       `json:"goroutines"`
	GeneratedAt   time.Time `json:"generated_at"`
}
