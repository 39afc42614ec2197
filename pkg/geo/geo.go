package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/pkg/common"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/logger"

	"golang.org/x/time/rate"
)

// Geocoder resolves free-form location strings into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, raw string) (common.GeoLocation, error)
}

// NominatimGeocoder calls the OSM Nominatim search API. Results are cached
// by a hash of the normalized query so repeated mentions of the same place
// across documents cost a single request. Requests are rate limited to
// respect the public instance's usage policy.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string

	httpClient *http.Client
	limiter    *rate.Limiter

	cacheLock sync.RWMutex
	cache     map[string]common.GeoLocation
}

// NewNominatimGeocoderParams contains configuration options for creating a
// new NominatimGeocoder.
type NewNominatimGeocoderParams struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond defaults to 1 when zero.
	RequestsPerSecond float64
}

// NewNominatimGeocoder creates a geocoder backed by a Nominatim instance.
func NewNominatimGeocoder(params NewNominatimGeocoderParams) *NominatimGeocoder {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rps := params.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &NominatimGeocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: params.UserAgent,

		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),

		cache: map[string]common.GeoLocation{},
	}
}

type nominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// Geocode resolves a raw location string. An unresolvable location is not
// an error: the returned GeoLocation keeps the raw string with zero
// coordinates and Resolved() reporting false.
func (g *NominatimGeocoder) Geocode(ctx context.Context, raw string) (common.GeoLocation, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return common.GeoLocation{Raw: raw}, nil
	}

	key := cacheKey(query)

	g.cacheLock.RLock()
	cached, ok := g.cache[key]
	g.cacheLock.RUnlock()
	if ok {
		return cached, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return common.GeoLocation{Raw: raw}, err
	}

	loc, err := g.lookup(ctx, query)
	if err != nil {
		return common.GeoLocation{Raw: raw}, err
	}

	g.cacheLock.Lock()
	g.cache[key] = loc
	g.cacheLock.Unlock()

	return loc, nil
}

func (g *NominatimGeocoder) lookup(ctx context.Context, query string) (common.GeoLocation, error) {
	loc := common.GeoLocation{Raw: query}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		g.baseURL+"/search?"+params.Encode(), nil,
	)
	if err != nil {
		return loc, err
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return loc, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return loc, fmt.Errorf("geocoding %q: unexpected status %d", query, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return loc, err
	}

	if len(results) == 0 {
		logger.Debug("[Geo] No geocoding result", "query", query)
		return loc, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return loc, fmt.Errorf("geocoding %q: malformed coordinates in response", query)
	}

	loc.Latitude = lat
	loc.Longitude = lon
	loc.FormattedAddress = results[0].DisplayName
	loc.Confidence = results[0].Importance

	return loc, nil
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:])
}
