// Package engine orchestrates the forecast core over external providers:
// it fans evaluation out across locations, isolates per-location failures,
// and falls back to the last-known-good snapshot cache when a provider is
// unreachable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/epiforecast/outbreak-engine/internal/domain"
	"github.com/epiforecast/outbreak-engine/internal/observability"
)

// DiseaseHistoryProvider supplies chronological case histories. GetSeries
// fails with domain.ErrNotFound for an unknown (disease, location) pair.
type DiseaseHistoryProvider interface {
	GetSeries(ctx context.Context, disease domain.Disease, location string, windowDays int) (domain.DiseaseSeries, error)
}

// WeatherProvider supplies current and historical weather observations.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (domain.WeatherObservation, error)
	History(ctx context.Context, location string, days int) ([]domain.WeatherObservation, error)
}

// LocationRegistry lists the monitored locations. Profiles are created at
// configuration time and read-only to the engine.
type LocationRegistry interface {
	List(ctx context.Context) ([]domain.LocationProfile, error)
	Get(ctx context.Context, id string) (domain.LocationProfile, error)
}

// Options tunes engine behavior beyond its collaborators.
type Options struct {
	ProviderTimeout   time.Duration
	WorkerLimit       int
	HistoryWindowDays int
}

func (o Options) withDefaults() Options {
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 3 * time.Second
	}
	if o.WorkerLimit <= 0 {
		o.WorkerLimit = 8
	}
	if o.HistoryWindowDays <= 0 {
		o.HistoryWindowDays = 30
	}
	return o
}

// Engine is the outbreak forecast and risk-tiering service. It holds no
// long-lived mutable state beyond the snapshot cache.
type Engine struct {
	history    DiseaseHistoryProvider
	weather    WeatherProvider
	registry   LocationRegistry
	forecaster *domain.HorizonForecaster
	cache      *SnapshotCache
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options
	ready      atomic.Bool
}

// New wires an Engine from its collaborators.
func New(
	history DiseaseHistoryProvider,
	weather WeatherProvider,
	registry LocationRegistry,
	forecaster *domain.HorizonForecaster,
	cache *SnapshotCache,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Engine {
	return &Engine{
		history:    history,
		weather:    weather,
		registry:   registry,
		forecaster: forecaster,
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
		opts:       opts.withDefaults(),
	}
}

// CheckReadiness returns nil once the engine has completed at least one
// snapshot refresh or evaluation.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not completed an evaluation yet")
	}
	return nil
}

// Forecast produces the prediction series for one (disease, location) pair.
// Unknown identifiers and bad horizons are rejected; an unreachable history
// provider degrades to the cached series with predictions flagged stale.
func (e *Engine) Forecast(ctx context.Context, diseaseID, locationID string, horizonDays int) ([]domain.Prediction, error) {
	disease, err := domain.ParseDisease(diseaseID)
	if err != nil {
		e.metrics.ValidationErrors.Inc()
		return nil, err
	}
	if _, err := e.registry.Get(ctx, locationID); err != nil {
		e.metrics.ValidationErrors.Inc()
		return nil, fmt.Errorf("location %q: %w", locationID, err)
	}

	series, stale, err := e.fetchSeries(ctx, disease, locationID)
	if err != nil {
		return nil, err
	}

	predictions, err := e.forecaster.Forecast(disease, locationID, series.Points, horizonDays)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			e.metrics.ValidationErrors.Inc()
		}
		return nil, err
	}

	if stale {
		for i := range predictions {
			predictions[i].Stale = true
		}
	}

	e.metrics.ForecastsIssued.Inc()
	e.metrics.PredictionsMade.Add(float64(len(predictions)))
	return predictions, nil
}

// BatchForecast evaluates the full cross product of locations, diseases, and
// horizons. Inputs are validated synchronously; thereafter a provider
// failure for one location never affects its siblings; the failed pair is
// simply absent from the result. Output order is deterministic: input order
// of the triples, each expanded into its per-day predictions.
func (e *Engine) BatchForecast(ctx context.Context, locations, diseases []string, horizons []int) ([]domain.Prediction, error) {
	if len(locations) == 0 {
		return nil, &domain.ValidationError{Field: "locations", Reason: "must not be empty"}
	}
	if len(diseases) == 0 {
		return nil, &domain.ValidationError{Field: "diseases", Reason: "must not be empty"}
	}
	if len(horizons) == 0 {
		return nil, &domain.ValidationError{Field: "horizons", Reason: "must not be empty"}
	}

	parsed := make([]domain.Disease, len(diseases))
	for i, d := range diseases {
		disease, err := domain.ParseDisease(d)
		if err != nil {
			e.metrics.ValidationErrors.Inc()
			return nil, err
		}
		parsed[i] = disease
	}
	for _, h := range horizons {
		if h < 1 || h > domain.MaxHorizonDays {
			e.metrics.ValidationErrors.Inc()
			return nil, &domain.ValidationError{Field: "horizons", Reason: fmt.Sprintf("horizon %d out of range [1,%d]", h, domain.MaxHorizonDays)}
		}
	}
	for _, loc := range locations {
		if _, err := e.registry.Get(ctx, loc); err != nil {
			e.metrics.ValidationErrors.Inc()
			return nil, fmt.Errorf("location %q: %w", loc, err)
		}
	}

	type task struct {
		location string
		disease  domain.Disease
	}
	tasks := make([]task, 0, len(locations)*len(parsed))
	for _, loc := range locations {
		for _, d := range parsed {
			tasks = append(tasks, task{location: loc, disease: d})
		}
	}

	results := make([][]domain.Prediction, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.WorkerLimit)

	for i, tk := range tasks {
		g.Go(func() error {
			series, stale, err := e.fetchSeries(gctx, tk.disease, tk.location)
			if err != nil {
				// Per-location isolation: log and leave this pair out.
				e.logger.Warn("batch forecast pair skipped",
					"disease", tk.disease, "location", tk.location, "error", err)
				return nil
			}

			var pairResults []domain.Prediction
			for _, h := range horizons {
				predictions, err := e.forecaster.Forecast(tk.disease, tk.location, series.Points, h)
				if err != nil {
					e.logger.Warn("batch forecast failed",
						"disease", tk.disease, "location", tk.location, "horizon", h, "error", err)
					continue
				}
				if stale {
					for j := range predictions {
						predictions[j].Stale = true
					}
				}
				pairResults = append(pairResults, predictions...)
			}
			results[i] = pairResults
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.Prediction
	for _, r := range results {
		out = append(out, r...)
	}
	e.metrics.ForecastsIssued.Inc()
	e.metrics.PredictionsMade.Add(float64(len(out)))
	return out, nil
}

// CriticalAlerts runs a full evaluation cycle: forecast every active
// (location, disease) pair over the watch window, annotate with risk scores
// and expected cases, and tier the results. Locations are processed
// concurrently; a failing location yields no assessments but never fails
// the cycle.
func (e *Engine) CriticalAlerts(ctx context.Context) (domain.CriticalAlerts, error) {
	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	profiles, err := e.registry.List(ctx)
	if err != nil {
		return domain.CriticalAlerts{}, fmt.Errorf("list locations: %w", err)
	}

	var mu sync.Mutex
	var assessments []domain.PairAssessment

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.WorkerLimit)
	for _, profile := range profiles {
		g.Go(func() error {
			pas := e.assessLocation(gctx, profile)
			mu.Lock()
			assessments = append(assessments, pas...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CriticalAlerts{}, err
	}

	result := domain.TierAlerts(assessments)

	e.metrics.ActiveAlerts.WithLabelValues(string(domain.Tier24h)).Set(float64(len(result.Urgent24h)))
	e.metrics.ActiveAlerts.WithLabelValues(string(domain.Tier72h)).Set(float64(len(result.Watch72h)))
	e.markReady()
	return result, nil
}

// HighRiskAreas ranks locations by blended case density and weather risk.
func (e *Engine) HighRiskAreas(ctx context.Context, limit int) ([]domain.HighRiskArea, error) {
	if limit < 1 {
		e.metrics.ValidationErrors.Inc()
		return nil, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be positive, got %d", limit)}
	}

	profiles, err := e.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	var mu sync.Mutex
	var areas []domain.AreaSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.WorkerLimit)
	for _, profile := range profiles {
		g.Go(func() error {
			snapshot, ok := e.snapshotLocation(gctx, profile)
			if !ok {
				return nil
			}
			mu.Lock()
			areas = append(areas, snapshot)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.markReady()
	return domain.RankHighRiskAreas(areas, limit), nil
}

// RiskScore computes the composite 0-100 score for one location from its
// active diseases and current weather.
func (e *Engine) RiskScore(ctx context.Context, locationID string) (int, error) {
	profile, err := e.registry.Get(ctx, locationID)
	if err != nil {
		e.metrics.ValidationErrors.Inc()
		return 0, fmt.Errorf("location %q: %w", locationID, err)
	}

	weather, _, err := e.fetchWeather(ctx, locationID)
	if err != nil {
		return 0, err
	}

	active, _ := e.activeDiseases(ctx, profile)
	return domain.RiskScore(active, weather.TemperatureC, weather.HumidityPct), nil
}

// WeatherOutlook returns the current observation and forecast observations
// for one location. A failed forecast fetch degrades to current-only; a
// failed current fetch falls back to the snapshot cache like everywhere
// else.
func (e *Engine) WeatherOutlook(ctx context.Context, locationID string, days int) (domain.WeatherObservation, []domain.WeatherObservation, error) {
	if days < 1 {
		e.metrics.ValidationErrors.Inc()
		return domain.WeatherObservation{}, nil, &domain.ValidationError{Field: "days", Reason: fmt.Sprintf("must be positive, got %d", days)}
	}
	if _, err := e.registry.Get(ctx, locationID); err != nil {
		e.metrics.ValidationErrors.Inc()
		return domain.WeatherObservation{}, nil, fmt.Errorf("location %q: %w", locationID, err)
	}

	current, _, err := e.fetchWeather(ctx, locationID)
	if err != nil {
		return domain.WeatherObservation{}, nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()
	outlook, err := e.weather.History(fetchCtx, locationID, days)
	if err != nil {
		e.metrics.ProviderErrors.WithLabelValues("weather").Inc()
		e.logger.Warn("weather outlook unavailable", "location", locationID, "error", err)
		outlook = nil
	}
	return current, outlook, nil
}

// RefreshWeather warms the snapshot cache with fresh observations for every
// monitored location. Scheduled periodically; individual failures are logged
// and skipped.
func (e *Engine) RefreshWeather(ctx context.Context) error {
	profiles, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	refreshed := 0
	for _, profile := range profiles {
		obs, err := e.currentWeather(ctx, profile.ID)
		if err != nil {
			e.metrics.ProviderErrors.WithLabelValues("weather").Inc()
			e.logger.Warn("weather refresh failed", "location", profile.ID, "error", err)
			continue
		}
		e.cache.PutWeather(profile.ID, obs)
		refreshed++
	}

	e.cache.Purge()
	if refreshed > 0 {
		e.markReady()
	}
	e.logger.Info("weather snapshots refreshed", "refreshed", refreshed, "total", len(profiles))
	return nil
}

// RefreshHistory warms the snapshot cache with case series for every
// monitored (location, disease) pair that has history.
func (e *Engine) RefreshHistory(ctx context.Context) error {
	profiles, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}

	refreshed := 0
	for _, profile := range profiles {
		for _, disease := range domain.KnownDiseases() {
			series, err := e.getSeries(ctx, disease, profile.ID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				e.metrics.ProviderErrors.WithLabelValues("history").Inc()
				e.logger.Warn("history refresh failed",
					"location", profile.ID, "disease", disease, "error", err)
				continue
			}
			e.cache.PutSeries(series)
			refreshed++
		}
	}

	e.logger.Info("case history snapshots refreshed", "refreshed", refreshed)
	return nil
}

// assessLocation builds the annotated pair assessments for one location.
// Any provider trouble degrades or skips this location only.
func (e *Engine) assessLocation(ctx context.Context, profile domain.LocationProfile) []domain.PairAssessment {
	weather, weatherStale, err := e.fetchWeather(ctx, profile.ID)
	if err != nil {
		e.logger.Warn("location skipped, no weather available",
			"location", profile.ID, "error", err)
		return nil
	}

	active, seriesByDisease := e.activeDiseases(ctx, profile)
	if len(active) == 0 {
		return nil
	}

	score := domain.RiskScore(active, weather.TemperatureC, weather.HumidityPct)
	tier := domain.RiskLevelFromScore(score)

	assessments := make([]domain.PairAssessment, 0, len(active))
	for _, disease := range active {
		fetched := seriesByDisease[disease]
		predictions, err := e.forecaster.Forecast(disease, profile.ID, fetched.series.Points, 3)
		if err != nil {
			e.logger.Warn("assessment forecast failed",
				"location", profile.ID, "disease", disease, "error", err)
			continue
		}

		assessments = append(assessments, domain.PairAssessment{
			Location:       profile.ID,
			LocationName:   profile.Name,
			Disease:        disease,
			Predictions:    predictions,
			EstimatedCases: domain.EstimateCases([]domain.Disease{disease}, tier, profile.Population),
			Stale:          weatherStale || fetched.stale,
		})
	}
	return assessments
}

// snapshotLocation assembles the ranking input for one location.
func (e *Engine) snapshotLocation(ctx context.Context, profile domain.LocationProfile) (domain.AreaSnapshot, bool) {
	weather, _, err := e.fetchWeather(ctx, profile.ID)
	if err != nil {
		e.logger.Warn("location skipped in ranking, no weather available",
			"location", profile.ID, "error", err)
		return domain.AreaSnapshot{}, false
	}

	_, seriesByDisease := e.activeDiseases(ctx, profile)
	cases := make(map[domain.Disease]int, len(seriesByDisease))
	for disease, fetched := range seriesByDisease {
		cases[disease] = fetched.series.TotalCases()
	}

	return domain.AreaSnapshot{
		Profile:        profile,
		Weather:        weather,
		CasesByDisease: cases,
	}, true
}

type fetchedSeries struct {
	series domain.DiseaseSeries
	stale  bool
}

// activeDiseases fetches every known disease's series for a location and
// returns those with recent cases plus everything fetched. Missing series
// (ErrNotFound) and unreachable pairs are skipped.
func (e *Engine) activeDiseases(ctx context.Context, profile domain.LocationProfile) ([]domain.Disease, map[domain.Disease]fetchedSeries) {
	byDisease := make(map[domain.Disease]fetchedSeries)
	var active []domain.Disease

	for _, disease := range domain.KnownDiseases() {
		series, stale, err := e.fetchSeries(ctx, disease, profile.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				e.logger.Debug("series unavailable",
					"location", profile.ID, "disease", disease, "error", err)
			}
			continue
		}
		byDisease[disease] = fetchedSeries{series: series, stale: stale}
		if series.TotalCases() > 0 {
			active = append(active, disease)
		}
	}
	return active, byDisease
}

// fetchSeries gets a case series with the provider timeout, falling back to
// the snapshot cache when the provider is unreachable. The bool reports
// whether the result is stale cache data.
func (e *Engine) fetchSeries(ctx context.Context, disease domain.Disease, location string) (domain.DiseaseSeries, bool, error) {
	series, err := e.getSeries(ctx, disease, location)
	if err == nil {
		e.cache.PutSeries(series)
		return series, false, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DiseaseSeries{}, false, err
	}

	e.metrics.ProviderErrors.WithLabelValues("history").Inc()
	if cached, ok := e.cache.GetSeries(disease, location); ok {
		e.metrics.CacheLookups.WithLabelValues("series", "hit").Inc()
		e.metrics.StaleResults.Inc()
		return cached, true, nil
	}
	e.metrics.CacheLookups.WithLabelValues("series", "miss").Inc()
	return domain.DiseaseSeries{}, false,
		fmt.Errorf("history for %s at %s: %w", disease, location, errors.Join(domain.ErrProviderUnavailable, err))
}

// fetchWeather gets the current observation with the provider timeout,
// falling back to the snapshot cache when the provider is unreachable.
func (e *Engine) fetchWeather(ctx context.Context, location string) (domain.WeatherObservation, bool, error) {
	obs, err := e.currentWeather(ctx, location)
	if err == nil {
		e.cache.PutWeather(location, obs)
		return obs, false, nil
	}

	e.metrics.ProviderErrors.WithLabelValues("weather").Inc()
	if cached, ok := e.cache.GetWeather(location); ok {
		e.metrics.CacheLookups.WithLabelValues("weather", "hit").Inc()
		e.metrics.StaleResults.Inc()
		return cached, true, nil
	}
	e.metrics.CacheLookups.WithLabelValues("weather", "miss").Inc()
	return domain.WeatherObservation{}, false,
		fmt.Errorf("weather at %s: %w", location, errors.Join(domain.ErrProviderUnavailable, err))
}

func (e *Engine) getSeries(ctx context.Context, disease domain.Disease, location string) (domain.DiseaseSeries, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()
	return e.history.GetSeries(fetchCtx, disease, location, e.opts.HistoryWindowDays)
}

func (e *Engine) currentWeather(ctx context.Context, location string) (domain.WeatherObservation, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()
	return e.weather.Current(fetchCtx, location)
}

func (e *Engine) markReady() {
	if e.ready.CompareAndSwap(false, true) {
		e.metrics.EngineReady.Set(1)
	}
}
