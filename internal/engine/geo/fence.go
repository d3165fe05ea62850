package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/rendis/placetap/internal/model"
)

// Fence restricts records to a radius around a center, a polygon area, or
// both. Records without coordinates are never inside a fence.
type Fence struct {
	center   orb.Point
	radiusKm float64
	area     orb.MultiPolygon
}

func RadiusFence(center orb.Point, radiusKm float64) *Fence {
	return &Fence{center: center, radiusKm: radiusKm}
}

func AreaFence(area orb.MultiPolygon) *Fence {
	return &Fence{area: area}
}

// Within adds a polygon constraint to f.
func (f *Fence) Within(area orb.MultiPolygon) *Fence {
	f.area = area
	return f
}

// Contains reports whether lat,lng satisfies every constraint of f.
func (f *Fence) Contains(lat, lng float64) bool {
	if f.radiusKm > 0 && HaversineKm(f.center.Lat(), f.center.Lon(), lat, lng) > f.radiusKm {
		return false
	}
	if len(f.area) > 0 && !planar.MultiPolygonContains(f.area, orb.Point{lng, lat}) {
		return false
	}
	return true
}

// Keep is the record filter form of Contains.
func (f *Fence) Keep(r model.Record) bool {
	if !r.HasCoords() {
		return false
	}
	return f.Contains(*r.Lat, *r.Lng)
}

// ParseCenter reads "lat,lng". ok is false for anything else, including
// out of range values.
func ParseCenter(s string) (p orb.Point, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lng, lat}, true
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
