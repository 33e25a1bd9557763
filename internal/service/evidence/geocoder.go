package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org"
	defaultCacheTTL    = 60 * time.Second
	userAgent          = "hris-attendance/1.0"
)

// Place is a reverse-geocoded location.
type Place struct {
	Address   string `json:"address"`
	PlaceName string `json:"place_name"`
}

// Geocoder resolves coordinates to an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

var ErrNoAddress = errors.New("no address for coordinates")

type cacheKey struct {
	lat, lon float64
}

type cacheEntry struct {
	place    Place
	storedAt time.Time
}

// NominatimGeocoder calls a Nominatim-compatible /reverse endpoint.
// Successful lookups are cached briefly, keyed by coordinates rounded to
// five decimals (about one meter).
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

func NewNominatimGeocoder(baseURL string, timeout time.Duration) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		ttl:     defaultCacheTTL,
		now:     time.Now,
		cache:   make(map[cacheKey]cacheEntry),
	}
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Reverse implements Geocoder.
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	key := cacheKey{lat: round5(lat), lon: round5(lon)}
	if place, ok := g.cached(key); ok {
		return place, nil
	}

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, fmt.Errorf("decode geocoder response: %w", err)
	}
	if body.Error != "" || body.DisplayName == "" {
		return Place{}, ErrNoAddress
	}

	place := Place{Address: body.DisplayName, PlaceName: placeName(body)}
	g.store(key, place)
	return place, nil
}

func (g *NominatimGeocoder) cached(key cacheKey) (Place, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.cache[key]
	if !ok {
		return Place{}, false
	}
	if g.now().Sub(entry.storedAt) >= g.ttl {
		delete(g.cache, key)
		return Place{}, false
	}
	return entry.place, true
}

func (g *NominatimGeocoder) store(key cacheKey, place Place) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	// Drop expired entries so the map does not grow with every location.
	for k, e := range g.cache {
		if now.Sub(e.storedAt) >= g.ttl {
			delete(g.cache, k)
		}
	}
	g.cache[key] = cacheEntry{place: place, storedAt: now}
}

// placeKeys are the address parts tried, most specific first, for a
// short place label.
var placeKeys = []string{
	"amenity", "building", "shop", "road", "neighbourhood",
	"suburb", "city", "town", "village", "state",
}

func placeName(r nominatimResponse) string {
	for _, k := range placeKeys {
		if v := strings.TrimSpace(r.Address[k]); v != "" {
			return v
		}
	}
	first, _, _ := strings.Cut(r.DisplayName, ",")
	return strings.TrimSpace(first)
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
