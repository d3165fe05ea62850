package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/rendis/placetap/internal/engine/httpx"
)

const NominatimURL = "https://nominatim.openstreetmap.org/search"

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"` // [minLat, maxLat, minLng, maxLng]
	DisplayName string   `json:"display_name"`
}

// Place is a geocoded location.
type Place struct {
	Name   string
	Center orb.Point
	Bound  orb.Bound
}

// Geocoder resolves place names with the OSM Nominatim API.
type Geocoder struct {
	client  *httpx.Client
	baseURL string
	email   string
}

func NewGeocoder(client *httpx.Client, baseURL, email string) *Geocoder {
	if baseURL == "" {
		baseURL = NominatimURL
	}
	return &Geocoder{client: client, baseURL: strings.TrimRight(baseURL, "?&"), email: email}
}

// Geocode returns the best match for q.
func (g *Geocoder) Geocode(ctx context.Context, q string) (Place, error) {
	u := g.baseURL + "?" + url.Values{
		"q":      {q},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	var header http.Header
	if g.email != "" {
		header = http.Header{"From": {g.email}}
	}

	body, err := g.client.Get(ctx, u, header)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return Place{}, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("place %q not found", q)
	}

	r := results[0]
	lat, err1 := strconv.ParseFloat(r.Lat, 64)
	lng, err2 := strconv.ParseFloat(r.Lon, 64)
	if err1 != nil || err2 != nil {
		return Place{}, fmt.Errorf("invalid coordinates %q,%q from geocoder", r.Lat, r.Lon)
	}

	p := Place{Name: r.DisplayName, Center: orb.Point{lng, lat}}
	p.Bound = p.Center.Bound()
	if bb := r.BoundingBox; len(bb) == 4 {
		minLat, _ := strconv.ParseFloat(bb[0], 64)
		maxLat, _ := strconv.ParseFloat(bb[1], 64)
		minLng, _ := strconv.ParseFloat(bb[2], 64)
		maxLng, _ := strconv.ParseFloat(bb[3], 64)
		p.Bound = orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}
	}
	return p, nil
}
