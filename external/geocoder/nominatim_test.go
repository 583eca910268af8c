package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestGeocoder(t *testing.T, handler http.Handler) *NominatimGeocoder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	geo := NewNominatimGeocoder().(*NominatimGeocoder)
	geo.baseURL = server.URL
	geo.client = server.Client()
	return geo
}

func TestReverseGeocode_ReturnsCity(t *testing.T) {
	geo := newTestGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("lat") != "37.1773" || r.URL.Query().Get("lon") != "-3.5986" {
			t.Fatalf("unexpected coordinates: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("format") != "jsonv2" {
			t.Fatalf("unexpected format: %s", r.URL.Query().Get("format"))
		}
		if r.Header.Get("User-Agent") != userAgent {
			t.Fatalf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"address": {"city": "Granada", "state": "Andalusia"}}`))
	}))

	got, err := geo.ReverseGeocode(context.Background(), 37.1773, -3.5986)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Granada" {
		t.Fatalf("unexpected place: %q", got)
	}
}

func TestReverseGeocode_FallsBackToTown(t *testing.T) {
	geo := newTestGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address": {"town": "Lanjarón", "state": "Andalusia"}}`))
	}))

	got, err := geo.ReverseGeocode(context.Background(), 36.9199, -3.4783)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Lanjarón" {
		t.Fatalf("unexpected place: %q", got)
	}
}

func TestReverseGeocode_NoPlaceName(t *testing.T) {
	geo := newTestGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address": {}}`))
	}))

	if _, err := geo.ReverseGeocode(context.Background(), 0, 0); err == nil {
		t.Fatal("expected an error when no place name is present")
	}
}

func TestReverseGeocode_Non2xx(t *testing.T) {
	geo := newTestGeocoder(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if _, err := geo.ReverseGeocode(context.Background(), 37.1773, -3.5986); err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
