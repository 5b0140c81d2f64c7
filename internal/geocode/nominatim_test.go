package geocode_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/geocode"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func TestNominatimResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	point := models.GeoPoint{Latitude: 12.9716, Longitude: 77.5946}

	t.Run("successful resolution", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org/reverse")
				assert.Equal(t, "12.9716", req.URL.Query().Get("lat"))
				assert.Equal(t, "77.5946", req.URL.Query().Get("lon"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Contains(t, req.Header.Get("User-Agent"), "Hermes-ETA-Client")

				responseBody := `{"display_name":"Vidhana Soudha, Bengaluru, Karnataka, India"}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		label, err := resolver.Resolve(ctx, point)

		require.NoError(t, err)
		assert.Equal(t, "Vidhana Soudha, Bengaluru, Karnataka, India", label)
	})

	t.Run("unable to geocode inside a 200 body", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				responseBody := `{"error":"Unable to geocode"}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		label, err := resolver.Resolve(ctx, models.GeoPoint{Latitude: 0, Longitude: 0})

		require.Error(t, err)
		assert.Empty(t, label)
		assert.ErrorIs(t, err, geocode.ErrNominatimNoResult)
	})

	t.Run("empty display name", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString(`{}`)),
				}, nil
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		_, err := resolver.Resolve(ctx, point)

		require.Error(t, err)
		assert.ErrorIs(t, err, geocode.ErrNominatimEmptyResponse)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				responseBody := `{"error":"Rate limit exceeded"}`
				return &http.Response{
					StatusCode: http.StatusTooManyRequests,
					Body:       io.NopCloser(bytes.NewBufferString(responseBody)),
				}, nil
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		_, err := resolver.Resolve(ctx, point)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(bytes.NewBufferString("invalid json")),
				}, nil
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		_, err := resolver.Resolve(ctx, point)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		resolver := geocode.NewNominatimResolverWithClient(mockClient, nil, logger)
		_, err := resolver.Resolve(ctx, point)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute reverse geocoding request")
	})
}

func TestNewNominatimResolver(t *testing.T) {
	resolver := geocode.NewNominatimResolver(slog.Default())

	require.NotNil(t, resolver)
}
