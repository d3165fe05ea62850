package geo

import "math"

const (
	minZoom = 10
	maxZoom = 17

	// Width of the browser viewport in 256px tiles.
	viewportTiles = 1280.0 / 256.0
)

// ZoomToSpanDegrees is the longitude span the viewport shows at zoom.
func ZoomToSpanDegrees(zoom int) float64 {
	return 360.0 / math.Pow(2, float64(zoom)) * viewportTiles
}

// ZoomForRadius picks the closest zoom whose viewport still shows a circle
// of radiusKm around a center at lat. Non-positive radii get the closest
// zoom.
func ZoomForRadius(lat, radiusKm float64) int {
	if radiusKm <= 0 {
		return maxZoom
	}
	// Longitude degrees shrink with latitude.
	want := 2 * radiusKm / (111.0 * math.Cos(lat*math.Pi/180.0))
	for z := maxZoom; z > minZoom; z-- {
		if ZoomToSpanDegrees(z) >= want {
			return z
		}
	}
	return minZoom
}
