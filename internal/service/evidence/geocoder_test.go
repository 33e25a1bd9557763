package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNominatim(t *testing.T, status int, body string) (*NominatimGeocoder, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewNominatimGeocoder(srv.URL, time.Second), &calls
}

const mgRoad = `{
	"display_name": "Mahatma Gandhi Road, Shanthala Nagar, Bengaluru, Karnataka, India",
	"address": {"road": "Mahatma Gandhi Road", "city": "Bengaluru"}
}`

func TestNominatimGeocoder_Reverse(t *testing.T) {
	g, calls := newNominatim(t, http.StatusOK, mgRoad)

	place, err := g.Reverse(context.Background(), 12.975, 77.605)
	require.NoError(t, err)
	assert.Equal(t, "Mahatma Gandhi Road, Shanthala Nagar, Bengaluru, Karnataka, India", place.Address)
	assert.Equal(t, "Mahatma Gandhi Road", place.PlaceName)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNominatimGeocoder_CachesRoundedCoordinates(t *testing.T) {
	g, calls := newNominatim(t, http.StatusOK, mgRoad)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := g.Reverse(ctx, 12.975000, 77.605000)
	require.NoError(t, err)
	_, err = g.Reverse(ctx, 12.9750001, 77.6050004) // same at 5 decimals
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = g.Reverse(ctx, 12.97501, 77.605)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	now = now.Add(61 * time.Second)
	_, err = g.Reverse(ctx, 12.975, 77.605)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNominatimGeocoder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, `{}`},
		{"unable to geocode", http.StatusOK, `{"error": "Unable to geocode"}`},
		{"malformed body", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, calls := newNominatim(t, tt.status, tt.body)
			_, err := g.Reverse(context.Background(), 1, 1)
			assert.Error(t, err)

			// Failures are not cached.
			_, _ = g.Reverse(context.Background(), 1, 1)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestPlaceName_FallsBackToFirstDisplayPart(t *testing.T) {
	assert.Equal(t, "Cubbon Park", placeName(nominatimResponse{DisplayName: "Cubbon Park, Bengaluru"}))
	assert.Equal(t, "Infosys", placeName(nominatimResponse{
		DisplayName: "x",
		Address:     map[string]string{"building": "Infosys", "road": "Hosur Road"},
	}))
}
