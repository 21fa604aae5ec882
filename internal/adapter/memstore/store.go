// Package memstore keeps ingested disease case histories in memory. The
// engine treats it as its history provider; the Kafka consumer feeds it.
// Series are bounded per pair so a long-running process does not grow without
// limit.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/epiforecast/outbreak-engine/internal/domain"
)

// maxPointsPerSeries bounds retained history per (disease, location) pair.
// Old points roll off the front once exceeded.
const maxPointsPerSeries = 400

// CaseReport is one ingested daily case count for a (disease, location) pair.
type CaseReport struct {
	Disease  domain.Disease `json:"disease"`
	Location string         `json:"location"`
	Date     time.Time      `json:"date"`
	Count    int            `json:"count"`
}

// Store is a concurrency-safe in-memory series store.
type Store struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	series map[key]*domain.DiseaseSeries
}

type key struct {
	location string
	disease  domain.Disease
}

// New creates an empty store. A nil clock uses wall time.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:  clock,
		series: make(map[key]*domain.DiseaseSeries),
	}
}

// Record appends a case report to its series. Reports for the day already at
// the tail accumulate into that day's count; a report dated before the tail
// is rejected so series stay strictly chronological.
func (s *Store) Record(report CaseReport) error {
	if report.Count < 0 {
		return &domain.ValidationError{Field: "count", Reason: fmt.Sprintf("must be non-negative, got %d", report.Count)}
	}
	if _, err := domain.ParseDisease(string(report.Disease)); err != nil {
		return err
	}
	if report.Location == "" {
		return &domain.ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if report.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Reason: "must be set"}
	}

	day := report.Date.Truncate(24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{location: report.Location, disease: report.Disease}
	series, ok := s.series[k]
	if !ok {
		series = &domain.DiseaseSeries{Disease: report.Disease, Location: report.Location}
		s.series[k] = series
	}

	if n := len(series.Points); n > 0 {
		last := series.Points[n-1].Date
		switch {
		case day.Equal(last):
			series.Points[n-1].Count += report.Count
			return nil
		case day.Before(last):
			return &domain.ValidationError{
				Field:  "date",
				Reason: fmt.Sprintf("out of order: %s is before recorded %s", day.Format(time.DateOnly), last.Format(time.DateOnly)),
			}
		}
	}

	series.Points = append(series.Points, domain.TimeSeriesPoint{Date: day, Count: report.Count})
	if len(series.Points) > maxPointsPerSeries {
		series.Points = series.Points[len(series.Points)-maxPointsPerSeries:]
	}
	return nil
}

// Seed loads an initial series wholesale, replacing any existing one. Used at
// startup for baseline histories.
func (s *Store) Seed(series domain.DiseaseSeries) error {
	if err := series.Validate(); err != nil {
		return err
	}
	if _, err := domain.ParseDisease(string(series.Disease)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copied := series
	copied.Points = append([]domain.TimeSeriesPoint(nil), series.Points...)
	s.series[key{location: series.Location, disease: series.Disease}] = &copied
	return nil
}

// GetSeries returns the pair's history restricted to the trailing window,
// or domain.ErrNotFound for an unknown pair.
func (s *Store) GetSeries(_ context.Context, disease domain.Disease, location string, windowDays int) (domain.DiseaseSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[key{location: location, disease: disease}]
	if !ok {
		return domain.DiseaseSeries{}, fmt.Errorf("series %s at %s: %w", disease, location, domain.ErrNotFound)
	}

	out := domain.DiseaseSeries{Disease: disease, Location: location}
	if windowDays > 0 {
		cutoff := s.clock.Now().AddDate(0, 0, -windowDays)
		for _, p := range series.Points {
			if !p.Date.Before(cutoff) {
				out.Points = append(out.Points, p)
			}
		}
	} else {
		out.Points = append(out.Points, series.Points...)
	}
	return out, nil
}
