package entity

import "time"

// DefaultCacheTTLDays is how long a stored result is served from cache
// before a live re-fetch.
const DefaultCacheTTLDays = 8

// CacheEntry is one persisted result, keyed by fingerprint.
type CacheEntry struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	ReportName  string      `json:"report_name"`
	Table       ResultTable `json:"table"`
	CreatedAt   time.Time   `json:"created_at"`
	TTLDays     int         `json:"ttl_days"`
}

// Fresh reports whether the entry is still inside its TTL at the given
// instant.
func (e CacheEntry) Fresh(now time.Time) bool {
	ttl := e.TTLDays
	if ttl <= 0 {
		ttl = DefaultCacheTTLDays
	}
	return now.Sub(e.CreatedAt) < time.Duration(ttl)*24*time.Hour
}
