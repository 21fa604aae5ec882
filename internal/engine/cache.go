package engine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/epiforecast/outbreak-engine/internal/domain"
)

// SnapshotCache keeps the last accepted weather observation and case series
// per location so provider outages degrade to stale-flagged results instead
// of failing a batch. Entries are refreshed atomically under a write lock;
// readers never observe a partially-updated entry. Weather and case entries
// carry independent TTLs.
type SnapshotCache struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	weatherTTL time.Duration
	seriesTTL  time.Duration

	weather map[string]weatherEntry
	series  map[seriesKey]seriesEntry
}

type seriesKey struct {
	location string
	disease  domain.Disease
}

type weatherEntry struct {
	obs      domain.WeatherObservation
	storedAt time.Time
}

type seriesEntry struct {
	series   domain.DiseaseSeries
	storedAt time.Time
}

// NewSnapshotCache creates a cache with the given TTLs. Pass a fake clock in
// tests to exercise expiry.
func NewSnapshotCache(weatherTTL, seriesTTL time.Duration, clock clockwork.Clock) *SnapshotCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotCache{
		clock:      clock,
		weatherTTL: weatherTTL,
		seriesTTL:  seriesTTL,
		weather:    make(map[string]weatherEntry),
		series:     make(map[seriesKey]seriesEntry),
	}
}

// PutWeather stores the latest accepted observation for a location.
func (c *SnapshotCache) PutWeather(location string, obs domain.WeatherObservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weather[location] = weatherEntry{obs: obs, storedAt: c.clock.Now()}
}

// GetWeather returns the cached observation if present and unexpired.
func (c *SnapshotCache) GetWeather(location string) (domain.WeatherObservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.weather[location]
	if !ok || c.clock.Since(e.storedAt) > c.weatherTTL {
		return domain.WeatherObservation{}, false
	}
	return e.obs, true
}

// PutSeries stores the latest accepted case series for a pair.
func (c *SnapshotCache) PutSeries(series domain.DiseaseSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := seriesKey{location: series.Location, disease: series.Disease}
	c.series[key] = seriesEntry{series: series, storedAt: c.clock.Now()}
}

// GetSeries returns the cached series if present and unexpired.
func (c *SnapshotCache) GetSeries(disease domain.Disease, location string) (domain.DiseaseSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.series[seriesKey{location: location, disease: disease}]
	if !ok || c.clock.Since(e.storedAt) > c.seriesTTL {
		return domain.DiseaseSeries{}, false
	}
	return e.series, true
}

// Purge drops expired entries. Called opportunistically by refresh cycles;
// correctness does not depend on it since reads check TTLs.
func (c *SnapshotCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for loc, e := range c.weather {
		if now.Sub(e.storedAt) > c.weatherTTL {
			delete(c.weather, loc)
		}
	}
	for key, e := range c.series {
		if now.Sub(e.storedAt) > c.seriesTTL {
			delete(c.series, key)
		}
	}
}
