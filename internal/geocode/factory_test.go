package geocode_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver(t *testing.T) {
	logger := slog.Default()

	t.Run("create Google resolver successfully", func(t *testing.T) {
		config := geocode.ResolverConfig{
			Type:      geocode.ResolverTypeGoogle,
			APIKey:    "test-api-key",
			RateLimit: 10,
			Logger:    logger,
		}

		resolver, err := geocode.NewResolver(config)

		require.NoError(t, err)
		require.NotNil(t, resolver)
		_, ok := resolver.(*geocode.GoogleResolver)
		assert.True(t, ok, "expected resolver to be *GoogleResolver")
	})

	t.Run("create Google resolver without API key fails", func(t *testing.T) {
		config := geocode.ResolverConfig{
			Type:   geocode.ResolverTypeGoogle,
			Logger: logger,
		}

		resolver, err := geocode.NewResolver(config)

		require.Error(t, err)
		require.Nil(t, resolver)
		assert.Contains(t, err.Error(), "API key is required")
	})

	t.Run("create Nominatim resolver successfully", func(t *testing.T) {
		config := geocode.ResolverConfig{
			Type:   geocode.ResolverTypeNominatim,
			Logger: logger,
		}

		resolver, err := geocode.NewResolver(config)

		require.NoError(t, err)
		require.NotNil(t, resolver)
		_, ok := resolver.(*geocode.NominatimResolver)
		assert.True(t, ok, "expected resolver to be *NominatimResolver")
	})

	t.Run("unsupported resolver type", func(t *testing.T) {
		config := geocode.ResolverConfig{
			Type:   geocode.ResolverType("mapbox"),
			Logger: logger,
		}

		resolver, err := geocode.NewResolver(config)

		require.Error(t, err)
		require.Nil(t, resolver)
		assert.Contains(t, err.Error(), "unsupported resolver type")
	})
}
