package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiforecast/outbreak-engine/internal/domain"
)

func TestLoad(t *testing.T) {
	t.Run("loads a valid roster file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "locations.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"id": "karachi", "name": "Karachi", "province": "Sindh", "lat": 24.86, "lng": 67.0, "population": 15000000},
			{"id": "lahore", "name": "Lahore", "province": "Punjab", "lat": 31.52, "lng": 74.35, "population": 11000000}
		]`), 0o644))

		reg, err := Load(path)
		require.NoError(t, err)

		profiles, err := reg.List(context.Background())
		require.NoError(t, err)
		require.Len(t, profiles, 2)
		assert.Equal(t, "karachi", profiles[0].ID)

		karachi, err := reg.Get(context.Background(), "karachi")
		require.NoError(t, err)
		assert.Equal(t, "Sindh", karachi.Province)
		assert.Equal(t, 15_000_000, karachi.Population)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	valid := domain.LocationProfile{ID: "quetta", Name: "Quetta", Population: 1_000_000}

	t.Run("empty roster is a configuration error", func(t *testing.T) {
		_, err := New(nil)
		var cErr *domain.ConfigurationError
		assert.ErrorAs(t, err, &cErr)
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		_, err := New([]domain.LocationProfile{valid, valid})
		var cErr *domain.ConfigurationError
		assert.ErrorAs(t, err, &cErr)
	})

	t.Run("incomplete profile rejected", func(t *testing.T) {
		var cErr *domain.ConfigurationError
		_, err := New([]domain.LocationProfile{{Name: "No ID"}})
		assert.ErrorAs(t, err, &cErr)
		_, err = New([]domain.LocationProfile{{ID: "x", Name: "X", Population: -5}})
		assert.ErrorAs(t, err, &cErr)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		reg, err := New([]domain.LocationProfile{valid})
		require.NoError(t, err)
		_, err = reg.Get(context.Background(), "atlantis")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
