package barcode

import "time"

const (
	// StorageKey is the storage slot holding the serialized mapping.
	StorageKey = "barcodeCache"
	// MaxCacheSize is the number of entries kept after a write.
	MaxCacheSize = 1000
	// CacheExpiryDays is how long an unused entry stays valid.
	CacheExpiryDays = 30
	// CacheExpiry is CacheExpiryDays as a duration.
	CacheExpiry = CacheExpiryDays * 24 * time.Hour
)

// Entry is a cached product keyed by its barcode.
type Entry struct {
	Barcode  string   `json:"barcode"`
	Name     string   `json:"name"`
	Supplier string   `json:"supplier,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	// LastUsed is milliseconds since the Unix epoch.
	LastUsed int64 `json:"lastUsed"`
}

// LastUsedTime returns LastUsed as a time.Time.
func (e Entry) LastUsedTime() time.Time {
	return time.UnixMilli(e.LastUsed)
}

// Stats summarises the persisted mapping.
type Stats struct {
	// Size is the number of live entries.
	Size int `json:"size"`
	// Expired counts entries past expiry that have not been purged yet.
	Expired int `json:"expired"`
	// Total is Size + Expired.
	Total int `json:"total"`
}

// Match is a fuzzy search result with its similarity score.
type Match struct {
	Entry
	Score float64 `json:"score"`
}

// mapping is the persisted form, barcode -> entry.
type mapping map[string]Entry
