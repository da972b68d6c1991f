package barcode

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Store is the persistent string key-value store the mapping lives in.
// A missing key is reported as ("", false, nil).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

// Cache maps barcodes to recently used products. It keeps nothing in memory:
// every operation reads the whole mapping from the store, changes it and
// writes it back. Two processes sharing a store race, the last write wins.
//
// No operation returns an error. Storage and decoding faults are logged and
// the operation answers as if the barcode was never cached.
type Cache struct {
	store Store
	cfg   config
}

// New returns a Cache persisting to store.
func New(store Store, opts ...Option) *Cache {
	return &Cache{store: store, cfg: applyOptions(opts)}
}

// normalizeKey replaces invalid UTF-8 the way encoding/json does, so a key
// reads back under the same string it was written with.
func normalizeKey(barcode string) string {
	return strings.ToValidUTF8(barcode, "\uFFFD")
}

func (c *Cache) nowMillis() int64 {
	return c.cfg.now().UnixMilli()
}

func (c *Cache) expired(e Entry, now int64) bool {
	return now-e.LastUsed >= c.cfg.expiry.Milliseconds()
}

// load reads and decodes the mapping. A missing slot is an empty mapping.
func (c *Cache) load(ctx context.Context) (mapping, error) {
	raw, found, err := c.store.Get(ctx, c.cfg.key)
	if err != nil {
		return mapping{}, errors.Wrap(err, "read barcode cache")
	}
	if !found {
		return mapping{}, nil
	}
	m := mapping{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return mapping{}, errors.Wrap(err, "decode barcode cache")
	}
	if m == nil {
		// stored as JSON null
		m = mapping{}
	}
	return m, nil
}

// persist encodes and writes the mapping.
func (c *Cache) persist(ctx context.Context, m mapping) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode barcode cache")
	}
	if err := c.store.Set(ctx, c.cfg.key, string(buf)); err != nil {
		return errors.Wrap(err, "write barcode cache")
	}
	return nil
}

// update is the only read-modify-write path. It loads the mapping, hands it
// to fn with the current time, and persists it when fn reports a change.
// A load failure is logged and fn sees an empty mapping. The returned error
// is the persist failure, if any.
func (c *Cache) update(ctx context.Context, fn func(m mapping, now int64) bool) error {
	m, err := c.load(ctx)
	if err != nil {
		c.cfg.logger.Warn("barcode cache unreadable, treating as empty: %s", err)
	}
	if !fn(m, c.nowMillis()) {
		return nil
	}
	if err := c.persist(ctx, m); err != nil {
		c.cfg.logger.Warn("barcode cache not saved: %s", err)
		return err
	}
	return nil
}

// GetProduct returns the entry cached under barcode, or nil. A hit refreshes
// the entry's LastUsed. An expired entry is deleted and reported as a miss.
func (c *Cache) GetProduct(ctx context.Context, barcode string) *Entry {
	barcode = normalizeKey(barcode)
	var hit *Entry
	err := c.update(ctx, func(m mapping, now int64) bool {
		e, ok := m[barcode]
		if !ok {
			return false
		}
		if c.expired(e, now) {
			delete(m, barcode)
			return true
		}
		e.LastUsed = now
		m[barcode] = e
		hit = &e
		return true
	})
	if err != nil {
		return nil
	}
	return hit
}

// SetProduct stores entry under entry.Barcode with LastUsed set to now,
// replacing any previous entry, then evicts the least recently used entries
// above the size limit. Failures are logged only.
func (c *Cache) SetProduct(ctx context.Context, entry Entry) {
	entry.Barcode = normalizeKey(entry.Barcode)
	_ = c.update(ctx, func(m mapping, now int64) bool {
		entry.LastUsed = now
		m[entry.Barcode] = entry
		if n := evictLRU(m, c.cfg.maxSize); n > 0 {
			c.cfg.logger.Debug("evicted %d barcode cache entries", n)
		}
		return true
	})
}

// evictLRU deletes the oldest entries until at most limit remain and returns
// how many were deleted. Entries with equal LastUsed go in barcode order.
func evictLRU(m mapping, limit int) int {
	excess := len(m) - limit
	if excess <= 0 {
		return 0
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m[keys[i]], m[keys[j]]
		if a.LastUsed != b.LastUsed {
			return a.LastUsed < b.LastUsed
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys[:excess] {
		delete(m, key)
	}
	return excess
}

// FuzzySearch returns the live entries whose barcode FuzzyMatch accepts,
// best match first. It never writes to the store.
func (c *Cache) FuzzySearch(ctx context.Context, barcode string) []Entry {
	matches := c.FuzzySearchScored(ctx, barcode)
	out := make([]Entry, len(matches))
	for i, m := range matches {
		out[i] = m.Entry
	}
	return out
}

// FuzzySearchScored is FuzzySearch with each result's Similarity score.
// Results are ordered by score, then most recently used, then barcode.
func (c *Cache) FuzzySearchScored(ctx context.Context, barcode string) []Match {
	barcode = normalizeKey(barcode)
	m, err := c.load(ctx)
	if err != nil {
		c.cfg.logger.Warn("barcode cache unreadable, treating as empty: %s", err)
		return []Match{}
	}
	now := c.nowMillis()
	matches := []Match{}
	for key, e := range m {
		if c.expired(e, now) || !FuzzyMatch(key, barcode) {
			continue
		}
		matches = append(matches, Match{Entry: e, Score: Similarity(key, barcode)})
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.LastUsed != b.LastUsed {
			return a.LastUsed > b.LastUsed
		}
		return a.Barcode < b.Barcode
	})
	return matches
}

// CleanExpired deletes every expired entry and returns how many were
// deleted. The store is only written when something was deleted; a failed
// write returns 0.
func (c *Cache) CleanExpired(ctx context.Context) int {
	var removed int
	err := c.update(ctx, func(m mapping, now int64) bool {
		for key, e := range m {
			if c.expired(e, now) {
				delete(m, key)
				removed++
			}
		}
		return removed > 0
	})
	if err != nil {
		return 0
	}
	if removed > 0 {
		c.cfg.logger.Debug("removed %d expired barcode cache entries", removed)
	}
	return removed
}

// Stats counts the persisted entries without modifying the store.
func (c *Cache) Stats(ctx context.Context) Stats {
	m, err := c.load(ctx)
	if err != nil {
		c.cfg.logger.Warn("barcode cache unreadable, treating as empty: %s", err)
		return Stats{}
	}
	now := c.nowMillis()
	var st Stats
	for _, e := range m {
		st.Total++
		if c.expired(e, now) {
			st.Expired++
		}
	}
	st.Size = st.Total - st.Expired
	return st
}
