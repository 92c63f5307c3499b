package model

import "time"

// TagCount is one entry of an owner's tag listing.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// HealthStats is the body of the health endpoint.
type HealthStats struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	StoreOK bool   `json:"store_ok"`
	CacheOK *bool  `json:"cache_ok,omitempty"`
	System  struct {
		CPUPercent    float64 `json:"cpu_percent"`
		MemoryPercent float64 `json:"memory_percent"`
	} `json:"system"`
	CheckedAt time.Time `json:"checked_at"`
}
