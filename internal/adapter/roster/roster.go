// Package roster loads the monitored-location profiles from a JSON file at
// startup and serves them read-only.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/epiforecast/outbreak-engine/internal/domain"
)

// Registry is an immutable in-memory location registry.
type Registry struct {
	ordered []domain.LocationProfile
	byID    map[string]domain.LocationProfile
}

// Load reads and validates the roster file. Duplicate IDs and incomplete
// profiles fail startup.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var profiles []domain.LocationProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return New(profiles)
}

// New builds a registry from profiles already in hand.
func New(profiles []domain.LocationProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, &domain.ConfigurationError{Component: "location roster", Reason: "no locations defined"}
	}

	byID := make(map[string]domain.LocationProfile, len(profiles))
	for _, p := range profiles {
		if p.ID == "" || p.Name == "" {
			return nil, &domain.ConfigurationError{
				Component: "location roster",
				Reason:    fmt.Sprintf("profile %+v missing id or name", p),
			}
		}
		if p.Population < 0 {
			return nil, &domain.ConfigurationError{
				Component: "location roster",
				Reason:    fmt.Sprintf("negative population for %s", p.ID),
			}
		}
		if _, dup := byID[p.ID]; dup {
			return nil, &domain.ConfigurationError{
				Component: "location roster",
				Reason:    fmt.Sprintf("duplicate location id %q", p.ID),
			}
		}
		byID[p.ID] = p
	}

	ordered := append([]domain.LocationProfile(nil), profiles...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Registry{ordered: ordered, byID: byID}, nil
}

// List returns every profile in stable ID order.
func (r *Registry) List(_ context.Context) ([]domain.LocationProfile, error) {
	return append([]domain.LocationProfile(nil), r.ordered...), nil
}

// Get returns one profile or domain.ErrNotFound.
func (r *Registry) Get(_ context.Context, id string) (domain.LocationProfile, error) {
	p, ok := r.byID[id]
	if !ok {
		return domain.LocationProfile{}, fmt.Errorf("location %q: %w", id, domain.ErrNotFound)
	}
	return p, nil
}
