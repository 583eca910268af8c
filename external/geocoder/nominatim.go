// Package geocoder implements reverse geocoding on the OpenStreetMap
// Nominatim API.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lumeolabs/lexilens/internal/geocoder"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"

	// Nominatim usage policy requires an identifying User-Agent.
	userAgent = "lexilens/1.0 (github.com/lumeolabs/lexilens)"

	// Zoom 10 resolves to city granularity.
	reverseZoom = "10"
)

type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

func NewNominatimGeocoder() geocoder.Geocoder {
	return &NominatimGeocoder{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
	} `json:"address"`
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	query.Set("format", "jsonv2")
	query.Set("zoom", reverseZoom)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reverse geocode returned status %d", resp.StatusCode)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	place := firstNonEmpty(
		decoded.Address.City,
		decoded.Address.Town,
		decoded.Address.Village,
		decoded.Address.County,
		decoded.Address.State,
	)
	if place == "" {
		return "", fmt.Errorf("no place name for %s,%s", query.Get("lat"), query.Get("lon"))
	}
	return place, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
