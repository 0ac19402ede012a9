// Package cache provides small, explicit, threaded TTL caches for the
// two source artifacts that are expensive to re-decode but rarely
// change within a run: a zone's yearly weather record and the FX rate
// table. These are plain struct fields passed to whatever needs them,
// never package-level singletons, so tests and concurrent builds never
// share cache state unintentionally.
package cache

import (
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/zeebo/xxh3"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// DefaultTTL is how long a decoded source artifact stays cached before
// a fresh load is required. A single `eve_build` run for one zone/month
// rarely takes this long, so in practice the cache exists to dedupe
// repeated lookups within one run, not to survive across runs.
const DefaultTTL = 10 * time.Minute

func key(parts ...string) uint64 {
	h := xxh3.New()

	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.WriteString("\x00")
	}

	return h.Sum64()
}

// WeatherCache caches decoded WeatherYear records keyed by zone+year.
type WeatherCache struct {
	c *ttlcache.Cache[uint64, *sourcefmt.WeatherYear]
}

// NewWeatherCache constructs an empty weather cache. Callers must call
// Close (or rely on process exit) to stop its background janitor.
func NewWeatherCache() *WeatherCache {
	c := ttlcache.New[uint64, *sourcefmt.WeatherYear](
		ttlcache.WithTTL[uint64, *sourcefmt.WeatherYear](DefaultTTL),
	)

	go c.Start()

	return &WeatherCache{c: c}
}

// Get returns a cached weather year for zone/year, or loads it via
// loader and caches the result.
func (wc *WeatherCache) Get(zone string, year int, loader func() (*sourcefmt.WeatherYear, error)) (*sourcefmt.WeatherYear, error) {
	k := key("weather", zone, strconv.Itoa(year))

	if item := wc.c.Get(k); item != nil {
		return item.Value(), nil
	}

	wy, err := loader()
	if err != nil {
		return nil, err
	}

	wc.c.Set(k, wy, ttlcache.DefaultTTL)

	return wy, nil
}

// Close stops the cache's background janitor goroutine.
func (wc *WeatherCache) Close() {
	wc.c.Stop()
}

// FXCache caches the decoded FX table, a single global artifact rather
// than one per zone/year.
type FXCache struct {
	c *ttlcache.Cache[uint64, sourcefmt.FXTable]
}

// NewFXCache constructs an empty FX table cache.
func NewFXCache() *FXCache {
	c := ttlcache.New[uint64, sourcefmt.FXTable](
		ttlcache.WithTTL[uint64, sourcefmt.FXTable](DefaultTTL),
	)

	go c.Start()

	return &FXCache{c: c}
}

// Get returns the cached FX table, loading it via loader on first use.
func (fc *FXCache) Get(loader func() (sourcefmt.FXTable, error)) (sourcefmt.FXTable, error) {
	k := key("fx", "table")

	if item := fc.c.Get(k); item != nil {
		return item.Value(), nil
	}

	table, err := loader()
	if err != nil {
		return nil, err
	}

	fc.c.Set(k, table, ttlcache.DefaultTTL)

	return table, nil
}

// Close stops the cache's background janitor goroutine.
func (fc *FXCache) Close() {
	fc.c.Stop()
}
