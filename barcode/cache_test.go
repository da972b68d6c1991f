package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/agentuity/stockroom/logger"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	getErr error
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	val, ok := f.values[key]
	return val, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.values[key] = value
	return nil
}

func (f *fakeStore) decode(t *testing.T) map[string]Entry {
	t.Helper()
	m := map[string]Entry{}
	require.NoError(t, json.Unmarshal([]byte(f.values[StorageKey]), &m))
	return m
}

func (f *fakeStore) inject(t *testing.T, entries ...Entry) {
	t.Helper()
	m := map[string]Entry{}
	for _, e := range entries {
		m[e.Barcode] = e
	}
	buf, err := json.Marshal(m)
	require.NoError(t, err)
	f.values[StorageKey] = string(buf)
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(opts ...Option) (*Cache, *fakeStore, *clock) {
	store := newFakeStore()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return New(store, opts...), store, clk
}

func price(p float64) *float64 { return &p }

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache()
	before := clk.now.UnixMilli()

	c.SetProduct(ctx, Entry{Barcode: "7290001234567", Name: "Olive oil", Supplier: "Zeta", Price: price(12.5), LastUsed: 42})
	got := c.GetProduct(ctx, "7290001234567")
	require.NotNil(t, got)
	assert.Equal(t, "7290001234567", got.Barcode)
	assert.Equal(t, "Olive oil", got.Name)
	assert.Equal(t, "Zeta", got.Supplier)
	require.NotNil(t, got.Price)
	assert.Equal(t, 12.5, *got.Price)
	assert.GreaterOrEqual(t, got.LastUsed, before)
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache()
	assert.Nil(t, c.GetProduct(ctx, "nope"))
	assert.Equal(t, 0, store.sets)
}

func TestGetRefreshesLastUsed(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	clk.advance(time.Hour)

	got := c.GetProduct(ctx, "111")
	require.NotNil(t, got)
	assert.Equal(t, clk.now.UnixMilli(), got.LastUsed)
	assert.Equal(t, clk.now.UnixMilli(), store.decode(t)["111"].LastUsed)
	assert.True(t, clk.now.Equal(got.LastUsedTime()))
}

func TestSetOverwritesAndBumps(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt", Supplier: "A"})
	clk.advance(time.Minute)
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Sea salt"})

	m := store.decode(t)
	require.Len(t, m, 1)
	assert.Equal(t, "Sea salt", m["111"].Name)
	assert.Empty(t, m["111"].Supplier)
	assert.Nil(t, m["111"].Price)
	assert.Equal(t, clk.now.UnixMilli(), m["111"].LastUsed)
}

func TestExpiredEntryIsDeletedOnGet(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	store.inject(t,
		Entry{Barcode: "old", Name: "Stale", LastUsed: clk.now.Add(-31 * 24 * time.Hour).UnixMilli()},
		Entry{Barcode: "fresh", Name: "Fresh", LastUsed: clk.now.UnixMilli()},
	)

	assert.Nil(t, c.GetProduct(ctx, "old"))
	assert.NotContains(t, store.decode(t), "old")
	assert.Contains(t, store.decode(t), "fresh")
	assert.Nil(t, c.GetProduct(ctx, "old"))
}

func TestExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	store.inject(t,
		Entry{Barcode: "edge", Name: "Edge", LastUsed: clk.now.Add(-CacheExpiry).UnixMilli()},
		Entry{Barcode: "inside", Name: "Inside", LastUsed: clk.now.Add(-CacheExpiry + time.Millisecond).UnixMilli()},
	)
	assert.Nil(t, c.GetProduct(ctx, "edge"))
	assert.NotNil(t, c.GetProduct(ctx, "inside"))
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	for i := 0; i <= MaxCacheSize; i++ {
		c.SetProduct(ctx, Entry{Barcode: fmt.Sprintf("bc-%04d", i), Name: "item"})
		clk.advance(time.Millisecond)
	}

	assert.Len(t, store.decode(t), MaxCacheSize)
	assert.Nil(t, c.GetProduct(ctx, "bc-0000"))
	assert.NotNil(t, c.GetProduct(ctx, "bc-0001"))
	assert.NotNil(t, c.GetProduct(ctx, fmt.Sprintf("bc-%04d", MaxCacheSize)))
	assert.Equal(t, Stats{Size: MaxCacheSize, Total: MaxCacheSize}, c.Stats(ctx))
}

func TestEvictionRespectsRecency(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache(WithMaxSize(3))
	for _, bc := range []string{"a", "b", "c"} {
		c.SetProduct(ctx, Entry{Barcode: bc, Name: bc})
		clk.advance(time.Second)
	}
	// touching "a" makes "b" the oldest
	require.NotNil(t, c.GetProduct(ctx, "a"))
	clk.advance(time.Second)
	c.SetProduct(ctx, Entry{Barcode: "d", Name: "d"})

	m := store.decode(t)
	assert.Len(t, m, 3)
	assert.NotContains(t, m, "b")
	for _, bc := range []string{"a", "c", "d"} {
		assert.Contains(t, m, bc)
	}
}

func TestEvictLRUTies(t *testing.T) {
	m := mapping{
		"z": {Barcode: "z", LastUsed: 1},
		"y": {Barcode: "y", LastUsed: 1},
		"x": {Barcode: "x", LastUsed: 2},
	}
	assert.Equal(t, 2, evictLRU(m, 1))
	assert.Contains(t, m, "x")
	assert.Equal(t, 0, evictLRU(m, 1))
	assert.Equal(t, 0, evictLRU(m, 10))
}

func TestFuzzySearchFindsNearMiss(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "7290001234567", Name: "Hummus"})

	got := c.FuzzySearch(ctx, "7290001234568")
	require.Len(t, got, 1)
	assert.Equal(t, "Hummus", got[0].Name)

	assert.Empty(t, c.FuzzySearch(ctx, "7290001234000"))
	assert.Empty(t, c.FuzzySearch(ctx, "72900012"))
	assert.Len(t, c.FuzzySearch(ctx, "72900012345"), 1)
}

func TestFuzzySearchRanking(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "12345679", Name: "distance one"})
	clk.advance(time.Minute)
	// more recent but further away
	c.SetProduct(ctx, Entry{Barcode: "1234557899", Name: "distance three"})

	got := c.FuzzySearchScored(ctx, "12345678")
	require.Len(t, got, 2)
	assert.Equal(t, "distance one", got[0].Name)
	assert.Equal(t, "distance three", got[1].Name)
	assert.InDelta(t, 87.5, got[0].Score, 0.001)
	assert.InDelta(t, 70.0, got[1].Score, 0.001)
}

func TestFuzzySearchTieBreaksOnRecency(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "12345670", Name: "older"})
	clk.advance(time.Minute)
	c.SetProduct(ctx, Entry{Barcode: "12345671", Name: "newer"})

	got := c.FuzzySearch(ctx, "12345678")
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Name)
	assert.Equal(t, "older", got[1].Name)
}

func TestFuzzySearchSkipsExpiredAndDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	store.inject(t,
		Entry{Barcode: "7290001234567", Name: "stale", LastUsed: clk.now.Add(-40 * 24 * time.Hour).UnixMilli()},
		Entry{Barcode: "7290001234566", Name: "live", LastUsed: clk.now.UnixMilli()},
	)
	got := c.FuzzySearch(ctx, "7290001234567")
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].Name)
	assert.Equal(t, 0, store.sets)
}

func TestCleanExpired(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	old := clk.now.Add(-31 * 24 * time.Hour).UnixMilli()
	store.inject(t,
		Entry{Barcode: "a", LastUsed: old},
		Entry{Barcode: "b", LastUsed: old},
		Entry{Barcode: "c", LastUsed: clk.now.UnixMilli()},
	)

	assert.Equal(t, 2, c.CleanExpired(ctx))
	assert.Equal(t, 1, store.sets)
	assert.Equal(t, []string{"c"}, keys(store.decode(t)))

	// nothing left to remove, no write
	assert.Equal(t, 0, c.CleanExpired(ctx))
	assert.Equal(t, 1, store.sets)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	c, store, clk := newTestCache()
	store.inject(t,
		Entry{Barcode: "a", LastUsed: clk.now.Add(-31 * 24 * time.Hour).UnixMilli()},
		Entry{Barcode: "b", LastUsed: clk.now.UnixMilli()},
		Entry{Barcode: "c", LastUsed: clk.now.UnixMilli()},
	)
	raw := store.values[StorageKey]

	first := c.Stats(ctx)
	second := c.Stats(ctx)
	assert.Equal(t, Stats{Size: 2, Expired: 1, Total: 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 0, store.sets)
	assert.Equal(t, raw, store.values[StorageKey])
	assert.NotNil(t, c.GetProduct(ctx, "b"))
}

func TestCorruptStorage(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	c, store, _ := newTestCache(WithLogger(log))
	store.values[StorageKey] = "{not json"

	assert.Nil(t, c.GetProduct(ctx, "7290001234567"))
	assert.Empty(t, c.FuzzySearch(ctx, "7290001234567"))
	assert.NotNil(t, c.FuzzySearch(ctx, "7290001234567"))
	assert.Equal(t, Stats{}, c.Stats(ctx))
	assert.Equal(t, 0, c.CleanExpired(ctx))
	assert.Equal(t, 0, store.sets)
	assert.Equal(t, 5, log.Count("WARNING"))
}

func TestSetOverCorruptStorageReplacesIt(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache()
	store.values[StorageKey] = "[1,2,3]"

	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	assert.Equal(t, []string{"111"}, keys(store.decode(t)))
	assert.NotNil(t, c.GetProduct(ctx, "111"))
}

func TestNullStorage(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache()
	store.values[StorageKey] = "null"
	assert.Equal(t, Stats{}, c.Stats(ctx))
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	assert.NotNil(t, c.GetProduct(ctx, "111"))
}

func TestStorageReadFailure(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	store.getErr = errors.New("storage unavailable")

	assert.Nil(t, c.GetProduct(ctx, "111"))
	assert.Empty(t, c.FuzzySearch(ctx, "111"))
	assert.Equal(t, Stats{}, c.Stats(ctx))
}

func TestStorageWriteFailure(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	c, store, clk := newTestCache(WithLogger(log))
	store.setErr = errors.New("quota exceeded")

	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	assert.Empty(t, store.values)
	assert.Equal(t, 1, log.Count("WARNING"))

	// a hit whose refresh cannot be saved degrades to a miss
	store.setErr = nil
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	store.setErr = errors.New("quota exceeded")
	assert.Nil(t, c.GetProduct(ctx, "111"))

	clk.advance(31 * 24 * time.Hour)
	assert.Equal(t, 0, c.CleanExpired(ctx))
}

func TestEmptyBarcodeIsAKey(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache()
	c.SetProduct(ctx, Entry{Barcode: "", Name: "blank"})
	got := c.GetProduct(ctx, "")
	require.NotNil(t, got)
	assert.Equal(t, "blank", got.Name)
}

func TestOptions(t *testing.T) {
	cfg := applyOptions([]Option{WithMaxSize(-1), WithExpiry(0), WithStorageKey(""), WithClock(nil), WithLogger(nil)})
	assert.Equal(t, MaxCacheSize, cfg.maxSize)
	assert.Equal(t, CacheExpiry, cfg.expiry)
	assert.Equal(t, StorageKey, cfg.key)
	assert.NotNil(t, cfg.now)
	assert.NotNil(t, cfg.logger)

	ctx := context.Background()
	c, store, clk := newTestCache(WithStorageKey("pos:1"), WithExpiry(time.Hour))
	c.SetProduct(ctx, Entry{Barcode: "111", Name: "Salt"})
	assert.Contains(t, store.values, "pos:1")
	clk.advance(time.Hour)
	assert.Nil(t, c.GetProduct(ctx, "111"))
}

func keys(m map[string]Entry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestInvalidUTF8BarcodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache()
	for _, bc := range []string{"12\xff34", "98\xff\xfe76"} {
		c.SetProduct(ctx, Entry{Barcode: bc, Name: "scanner noise"})
		got := c.GetProduct(ctx, bc)
		require.NotNil(t, got, "%q", bc)
		assert.Equal(t, "scanner noise", got.Name)
	}

	m := store.decode(t)
	assert.Len(t, m, 2)
	assert.Contains(t, m, "12\uFFFD34")
	assert.Contains(t, m, "98\uFFFD76")

	got := c.FuzzySearch(ctx, "12\xff34")
	require.NotEmpty(t, got)
	assert.Equal(t, "12\uFFFD34", got[0].Barcode)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "7290001234567", normalizeKey("7290001234567"))
	assert.Equal(t, "a\uFFFDb", normalizeKey("a\xffb"))
	assert.Equal(t, "a\uFFFDb", normalizeKey("a\xff\xfeb"))
}
