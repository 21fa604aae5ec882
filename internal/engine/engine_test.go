package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiforecast/outbreak-engine/internal/domain"
	"github.com/epiforecast/outbreak-engine/internal/observability"
)

type fakeHistory struct {
	mu     sync.Mutex
	series map[string]domain.DiseaseSeries
	fail   bool
}

func seriesKeyOf(d domain.Disease, location string) string {
	return location + "|" + string(d)
}

func (f *fakeHistory) GetSeries(_ context.Context, d domain.Disease, location string, _ int) (domain.DiseaseSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return domain.DiseaseSeries{}, errors.New("history backend down")
	}
	s, ok := f.series[seriesKeyOf(d, location)]
	if !ok {
		return domain.DiseaseSeries{}, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeHistory) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type fakeWeather struct {
	mu          sync.Mutex
	obs         map[string]domain.WeatherObservation
	outlook     map[string][]domain.WeatherObservation
	fail        bool
	failOutlook bool
}

func (f *fakeWeather) Current(_ context.Context, location string) (domain.WeatherObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return domain.WeatherObservation{}, errors.New("weather backend down")
	}
	o, ok := f.obs[location]
	if !ok {
		return domain.WeatherObservation{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeWeather) History(_ context.Context, location string, _ int) ([]domain.WeatherObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.failOutlook {
		return nil, errors.New("weather backend down")
	}
	return f.outlook[location], nil
}

func (f *fakeWeather) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type fakeRegistry struct {
	profiles []domain.LocationProfile
}

func (f *fakeRegistry) List(_ context.Context) ([]domain.LocationProfile, error) {
	return f.profiles, nil
}

func (f *fakeRegistry) Get(_ context.Context, id string) (domain.LocationProfile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.LocationProfile{}, domain.ErrNotFound
}

// risingSeries builds a 7-point series ending today with counts 0..120 in
// steps of 20. In July that drives a dengue day-1 prediction of
// round((60 + 20) * 1.3) = 104, which reads as high risk against the
// window average of 60.
func risingSeries(d domain.Disease, location string, now time.Time) domain.DiseaseSeries {
	points := make([]domain.TimeSeriesPoint, 0, 7)
	for i := 0; i < 7; i++ {
		points = append(points, domain.TimeSeriesPoint{
			Date:  now.AddDate(0, 0, i-7),
			Count: i * 20,
		})
	}
	return domain.DiseaseSeries{Disease: d, Location: location, Points: points}
}

func flatSeries(d domain.Disease, location string, now time.Time, count int) domain.DiseaseSeries {
	points := make([]domain.TimeSeriesPoint, 0, 7)
	for i := 0; i < 7; i++ {
		points = append(points, domain.TimeSeriesPoint{
			Date:  now.AddDate(0, 0, i-7),
			Count: count,
		})
	}
	return domain.DiseaseSeries{Disease: d, Location: location, Points: points}
}

type testFixture struct {
	engine   *Engine
	history  *fakeHistory
	weather  *fakeWeather
	registry *fakeRegistry
	cache    *SnapshotCache
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.July, 10, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	now := fakeClock.Now()
	history := &fakeHistory{series: map[string]domain.DiseaseSeries{
		seriesKeyOf(domain.Dengue, "karachi"):  risingSeries(domain.Dengue, "karachi", now),
		seriesKeyOf(domain.Dengue, "lahore"):   flatSeries(domain.Dengue, "lahore", now, 5),
		seriesKeyOf(domain.Typhoid, "karachi"): flatSeries(domain.Typhoid, "karachi", now, 3),
	}}
	weather := &fakeWeather{
		obs: map[string]domain.WeatherObservation{
			"karachi": {Location: "karachi", TemperatureC: 32, HumidityPct: 80, ObservedAt: now},
			"lahore":  {Location: "lahore", TemperatureC: 28, HumidityPct: 45, ObservedAt: now},
		},
		outlook: map[string][]domain.WeatherObservation{
			"karachi": {
				{Location: "karachi", TemperatureC: 33, HumidityPct: 76, ObservedAt: now.Add(3 * time.Hour)},
				{Location: "karachi", TemperatureC: 31, HumidityPct: 82, ObservedAt: now.Add(6 * time.Hour)},
			},
		},
	}
	registry := &fakeRegistry{profiles: []domain.LocationProfile{
		{ID: "karachi", Name: "Karachi", Province: "Sindh", Population: 15_000_000},
		{ID: "lahore", Name: "Lahore", Province: "Punjab", Population: 11_000_000},
	}}

	seasonal, err := domain.NewSeasonalAdjuster()
	require.NoError(t, err)
	forecaster := domain.NewHorizonForecaster(seasonal, domain.NoVariation{}, domain.DefaultWindowSize)

	cache := NewSnapshotCache(30*time.Minute, 2*time.Hour, fakeClock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng := New(history, weather, registry, forecaster, cache, logger,
		observability.NewMetricsForTesting(), Options{})

	return &testFixture{
		engine:   eng,
		history:  history,
		weather:  weather,
		registry: registry,
		cache:    cache,
	}
}

func TestEngineForecast(t *testing.T) {
	ctx := context.Background()

	t.Run("produces one prediction per horizon day", func(t *testing.T) {
		fx := newTestFixture(t)

		predictions, err := fx.engine.Forecast(ctx, "dengue", "karachi", 7)
		require.NoError(t, err)
		require.Len(t, predictions, 7)

		first := predictions[0]
		assert.Equal(t, 104, first.PredictedCases)
		assert.Equal(t, domain.RiskHigh, first.RiskLevel)
		assert.Equal(t, "increasing", first.Trend)
		assert.False(t, first.Stale)
		for i, p := range predictions {
			assert.Equal(t, i+1, p.HorizonDays)
		}
	})

	t.Run("rejects unknown disease", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.Forecast(ctx, "ebola", "karachi", 7)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "disease", vErr.Field)
	})

	t.Run("rejects unknown location", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.Forecast(ctx, "dengue", "atlantis", 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects out-of-range horizon", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.Forecast(ctx, "dengue", "karachi", 0)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)

		_, err = fx.engine.Forecast(ctx, "dengue", "karachi", domain.MaxHorizonDays+1)
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("serves stale predictions from cache when provider fails", func(t *testing.T) {
		fx := newTestFixture(t)

		fresh, err := fx.engine.Forecast(ctx, "dengue", "karachi", 3)
		require.NoError(t, err)

		fx.history.setFail(true)
		stale, err := fx.engine.Forecast(ctx, "dengue", "karachi", 3)
		require.NoError(t, err)
		require.Len(t, stale, 3)
		for i, p := range stale {
			assert.True(t, p.Stale)
			assert.Equal(t, fresh[i].PredictedCases, p.PredictedCases)
		}
	})

	t.Run("fails when provider is down and cache is cold", func(t *testing.T) {
		fx := newTestFixture(t)

		fx.history.setFail(true)
		_, err := fx.engine.Forecast(ctx, "dengue", "karachi", 3)
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})
}

func TestEngineBatchForecast(t *testing.T) {
	ctx := context.Background()

	t.Run("covers the full cross product", func(t *testing.T) {
		fx := newTestFixture(t)

		predictions, err := fx.engine.BatchForecast(ctx,
			[]string{"karachi", "lahore"}, []string{"dengue"}, []int{3, 7})
		require.NoError(t, err)
		// 2 locations x 1 disease x (3 + 7) days.
		assert.Len(t, predictions, 20)
	})

	t.Run("output order is deterministic", func(t *testing.T) {
		fx := newTestFixture(t)

		first, err := fx.engine.BatchForecast(ctx,
			[]string{"lahore", "karachi"}, []string{"dengue"}, []int{2})
		require.NoError(t, err)
		require.Len(t, first, 4)
		assert.Equal(t, "lahore", first[0].Location)
		assert.Equal(t, "karachi", first[2].Location)

		second, err := fx.engine.BatchForecast(ctx,
			[]string{"lahore", "karachi"}, []string{"dengue"}, []int{2})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("pairs without history are omitted, not fatal", func(t *testing.T) {
		fx := newTestFixture(t)

		// Lahore has no typhoid series; only the Karachi pair yields output.
		predictions, err := fx.engine.BatchForecast(ctx,
			[]string{"karachi", "lahore"}, []string{"typhoid"}, []int{2})
		require.NoError(t, err)
		require.Len(t, predictions, 2)
		assert.Equal(t, "karachi", predictions[0].Location)
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		fx := newTestFixture(t)
		var vErr *domain.ValidationError

		_, err := fx.engine.BatchForecast(ctx, nil, []string{"dengue"}, []int{3})
		assert.ErrorAs(t, err, &vErr)
		_, err = fx.engine.BatchForecast(ctx, []string{"karachi"}, nil, []int{3})
		assert.ErrorAs(t, err, &vErr)
		_, err = fx.engine.BatchForecast(ctx, []string{"karachi"}, []string{"dengue"}, nil)
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("rejects any invalid member synchronously", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.BatchForecast(ctx,
			[]string{"karachi"}, []string{"dengue", "ebola"}, []int{3})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)

		_, err = fx.engine.BatchForecast(ctx,
			[]string{"karachi", "atlantis"}, []string{"dengue"}, []int{3})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = fx.engine.BatchForecast(ctx,
			[]string{"karachi"}, []string{"dengue"}, []int{3, 500})
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestEngineCriticalAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("rising dengue in karachi raises an urgent alert", func(t *testing.T) {
		fx := newTestFixture(t)

		result, err := fx.engine.CriticalAlerts(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, result.Urgent24h)

		var karachi *domain.Alert
		for i := range result.Urgent24h {
			if result.Urgent24h[i].Location == "karachi" && result.Urgent24h[i].Disease == domain.Dengue {
				karachi = &result.Urgent24h[i]
			}
		}
		require.NotNil(t, karachi, "expected a karachi dengue alert")
		assert.Equal(t, domain.Tier24h, karachi.Tier)
		assert.Equal(t, "Karachi", karachi.LocationName)
		assert.NotEmpty(t, karachi.RecommendedActions)
		assert.Positive(t, karachi.EstimatedCases)

		assert.Equal(t, len(result.Urgent24h)+len(result.Watch72h), result.Summary.TotalCriticalAlerts)
	})

	t.Run("marks the engine ready", func(t *testing.T) {
		fx := newTestFixture(t)

		require.Error(t, fx.engine.CheckReadiness(ctx))
		_, err := fx.engine.CriticalAlerts(ctx)
		require.NoError(t, err)
		assert.NoError(t, fx.engine.CheckReadiness(ctx))
	})

	t.Run("weather outage with cold cache skips the location only", func(t *testing.T) {
		fx := newTestFixture(t)

		fx.weather.setFail(true)
		result, err := fx.engine.CriticalAlerts(ctx)
		require.NoError(t, err)
		assert.Empty(t, result.Urgent24h)
		assert.Empty(t, result.Watch72h)
	})

	t.Run("weather outage with warm cache degrades to stale alerts", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.CriticalAlerts(ctx)
		require.NoError(t, err)

		fx.weather.setFail(true)
		result, err := fx.engine.CriticalAlerts(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, result.Urgent24h)
		for _, a := range result.Urgent24h {
			assert.True(t, a.Stale)
		}
	})
}

func TestEngineHighRiskAreas(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked areas up to the limit", func(t *testing.T) {
		fx := newTestFixture(t)

		areas, err := fx.engine.HighRiskAreas(ctx, 5)
		require.NoError(t, err)
		require.Len(t, areas, 2)
		assert.Equal(t, 1, areas[0].Rank)
		assert.Equal(t, 2, areas[1].Rank)
		assert.GreaterOrEqual(t, areas[0].CompositeScore, areas[1].CompositeScore)

		limited, err := fx.engine.HighRiskAreas(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("rejects a non-positive limit", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.HighRiskAreas(ctx, 0)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestEngineRiskScore(t *testing.T) {
	ctx := context.Background()

	t.Run("scores a location from active diseases and weather", func(t *testing.T) {
		fx := newTestFixture(t)

		// Karachi: dengue and typhoid active (2 x 15), 32C (+10),
		// 80% humidity (+20), dengue band (+15), typhoid band (+10).
		score, err := fx.engine.RiskScore(ctx, "karachi")
		require.NoError(t, err)
		assert.Equal(t, 85, score)
	})

	t.Run("rejects an unknown location", func(t *testing.T) {
		fx := newTestFixture(t)

		_, err := fx.engine.RiskScore(ctx, "atlantis")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEngineWeatherOutlook(t *testing.T) {
	ctx := context.Background()

	t.Run("returns current conditions and the outlook", func(t *testing.T) {
		fx := newTestFixture(t)

		current, outlook, err := fx.engine.WeatherOutlook(ctx, "karachi", 2)
		require.NoError(t, err)
		assert.Equal(t, 32.0, current.TemperatureC)
		require.Len(t, outlook, 2)
		assert.Equal(t, 33.0, outlook[0].TemperatureC)
	})

	t.Run("degrades to current-only when the outlook fetch fails", func(t *testing.T) {
		fx := newTestFixture(t)

		fx.weather.mu.Lock()
		fx.weather.failOutlook = true
		fx.weather.mu.Unlock()

		current, outlook, err := fx.engine.WeatherOutlook(ctx, "karachi", 2)
		require.NoError(t, err)
		assert.Equal(t, 32.0, current.TemperatureC)
		assert.Empty(t, outlook)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		fx := newTestFixture(t)

		_, _, err := fx.engine.WeatherOutlook(ctx, "karachi", 0)
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)

		_, _, err = fx.engine.WeatherOutlook(ctx, "atlantis", 2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEngineRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("weather refresh warms the snapshot cache", func(t *testing.T) {
		fx := newTestFixture(t)

		require.NoError(t, fx.engine.RefreshWeather(ctx))
		obs, ok := fx.cache.GetWeather("karachi")
		require.True(t, ok)
		assert.Equal(t, 32.0, obs.TemperatureC)
		assert.NoError(t, fx.engine.CheckReadiness(ctx))
	})

	t.Run("history refresh warms the snapshot cache", func(t *testing.T) {
		fx := newTestFixture(t)

		require.NoError(t, fx.engine.RefreshHistory(ctx))
		series, ok := fx.cache.GetSeries(domain.Dengue, "karachi")
		require.True(t, ok)
		assert.Len(t, series.Points, 7)
	})

	t.Run("refresh survives provider failures", func(t *testing.T) {
		fx := newTestFixture(t)

		fx.weather.setFail(true)
		assert.NoError(t, fx.engine.RefreshWeather(ctx))
		_, ok := fx.cache.GetWeather("karachi")
		assert.False(t, ok)
	})
}
