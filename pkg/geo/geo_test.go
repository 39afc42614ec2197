package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGeocodeResolvesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.URL.Query().Get("q"); got != "Berlin" {
			t.Errorf("unexpected query %q", got)
		}
		w.Write([]byte(`[{"lat":"52.5170365","lon":"13.3888599","display_name":"Berlin, Germany","importance":0.9}]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(NewNominatimGeocoderParams{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
	})

	loc, err := g.Geocode(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loc.Resolved() {
		t.Fatal("expected location to be resolved")
	}
	if loc.FormattedAddress != "Berlin, Germany" {
		t.Errorf("unexpected address %q", loc.FormattedAddress)
	}
	if loc.Latitude == 0 || loc.Longitude == 0 {
		t.Error("expected non-zero coordinates")
	}

	// second call must come from cache
	if _, err := g.Geocode(context.Background(), "Berlin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream request, got %d", hits.Load())
	}
}

func TestGeocodeNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(NewNominatimGeocoderParams{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
	})

	loc, err := g.Geocode(context.Background(), "Nowhereville Zzz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Resolved() {
		t.Error("expected unresolved location")
	}
	if loc.Raw != "Nowhereville Zzz" {
		t.Errorf("raw string not preserved: %q", loc.Raw)
	}
}

func TestGeocodeEmptyQuery(t *testing.T) {
	g := NewNominatimGeocoder(NewNominatimGeocoderParams{RequestsPerSecond: 1000})

	loc, err := g.Geocode(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Resolved() {
		t.Error("expected unresolved location for empty query")
	}
}
