package extract

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailURL = "https://www.google.com/maps/place/Kopi+Klotok/@-7.556,110.788,17z/data=!3m1!4b1"

func loadFixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile("testdata/detail.html")
	require.NoError(t, err)
	return string(b)
}

func TestFromSnapshot(t *testing.T) {
	raw, err := FromSnapshot(Snapshot{URL: detailURL, HTML: loadFixture(t)})
	require.NoError(t, err)

	assert.Equal(t, "Kopi Klotok", raw.Name)
	assert.Equal(t, "Jl. Raya", raw.Address)
	assert.Equal(t, "0274 123", raw.Phone)
	assert.Equal(t, "4.6", raw.Rating)
	assert.Equal(t, "1,204", raw.TotalReviews)
	assert.Equal(t, "https://lh5.googleusercontent.com/p/AF1QipCover=w408-h272-k-no", raw.CoverImage)
	assert.Equal(t, detailURL, raw.PlaceURL)

	// The second cover rendition and the static map are skipped.
	assert.Equal(t, []string{
		"https://lh5.googleusercontent.com/p/AF1QipCover=w408-h272-k-no",
		"https://lh3.googleusercontent.com/gps-cs-s/Second=w80-h80",
		"https://lh6.googleusercontent.com/p/Third=s1360",
	}, raw.GalleryImages)

	assert.Equal(t, []string{
		"Great coffee, nice view.",
		"Busy on weekends.",
		"Friendly staff.",
	}, raw.Reviews)

	require.NotNil(t, raw.Lat)
	require.NotNil(t, raw.Lng)
	assert.Equal(t, -7.556, *raw.Lat)
	assert.Equal(t, 110.788, *raw.Lng)
}

func TestFromSnapshotFallbacks(t *testing.T) {
	html := `<html><head><meta property="og:image" content="https://example.com/og.png"></head>
<body><h1>Warung Sederhana</h1><div data-item-id="address">Jl. Adisucipto</div></body></html>`

	raw, err := FromSnapshot(Snapshot{URL: "https://www.google.com/maps/place/Warung", HTML: html})
	require.NoError(t, err)

	assert.Equal(t, "Warung Sederhana", raw.Name)
	assert.Equal(t, "Jl. Adisucipto", raw.Address)
	assert.Empty(t, raw.Phone)
	assert.Empty(t, raw.Rating)
	assert.Empty(t, raw.TotalReviews)
	assert.Equal(t, "https://example.com/og.png", raw.CoverImage)
	assert.Empty(t, raw.GalleryImages)
	assert.Empty(t, raw.Reviews)
	assert.Nil(t, raw.Lat)
	assert.Nil(t, raw.Lng)
}

func TestCoverFallsBackToButtonImage(t *testing.T) {
	html := `<body><h1 class="DUwDvf">A</h1><button><img src="https://example.com/btn.jpg"></button></body>`
	raw, err := FromSnapshot(Snapshot{HTML: html})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/btn.jpg", raw.CoverImage)
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		lat     float64
		lng     float64
		present bool
	}{
		{"viewport", "https://www.google.com/maps/place/X/@-7.556,110.788,17z", -7.556, 110.788, true},
		{"integer degrees", "https://www.google.com/maps/@40,-3,12z", 40, -3, true},
		{"missing", "https://www.google.com/maps/place/X/data=!4m2", 0, 0, false},
		{"out of range", "https://www.google.com/maps/@123.4,10.0,12z", 0, 0, false},
		{"empty", "", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng := Coordinates(tt.url)
			if !tt.present {
				assert.Nil(t, lat)
				assert.Nil(t, lng)
				return
			}
			require.NotNil(t, lat)
			require.NotNil(t, lng)
			assert.Equal(t, tt.lat, *lat)
			assert.Equal(t, tt.lng, *lng)
		})
	}
}
