package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/placetap/internal/model"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only spaces", "  \t\n ", ""},
		{"collapse", "  Kopi   Klotok \n Pakem ", "Kopi Klotok Pakem"},
		{"icon glyph", "\n  Jl. Raya Solo No. 5", "Jl. Raya Solo No. 5"},
		{"bullet", "· Coffee shop", "Coffee shop"},
		{"keeps phone plus", " +62 812-3456", "+62 812-3456"},
		{"keeps paren", "(1,234)", "(1,234)"},
		{"only noise", " · •", ""},
		{"unicode letters", "  Café  Ñandú ", "Café Ñandú"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	inputs := []string{
		"", " a ", "   x  y ", "··· • ‣ hello  world", "​​zero width",
		"(12)", "+1 (555) 010", "«quoted» text", "\t-\t- dash list",
	}
	for _, in := range inputs {
		once := CleanText(in)
		assert.Equal(t, once, CleanText(once), "input %q", in)
	}
}

func TestText(t *testing.T) {
	assert.Nil(t, Text("   "))
	got := Text(" Jl. Raya ")
	require.NotNil(t, got)
	assert.Equal(t, "Jl. Raya", *got)
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"size suffix",
			"https://lh5.googleusercontent.com/p/abc=w408-h272-k-no",
			"https://lh5.googleusercontent.com/p/abc=s0",
		},
		{
			"square size",
			"https://lh3.googleusercontent.com/gps-cs-s/xyz=s1360-w1360-h1020",
			"https://lh3.googleusercontent.com/gps-cs-s/xyz=s0",
		},
		{
			"no suffix",
			"https://lh5.googleusercontent.com/p/abc",
			"https://lh5.googleusercontent.com/p/abc=s0",
		},
		{
			"protocol relative",
			"//lh4.ggpht.com/p/abc=w80-h80",
			"https://lh4.ggpht.com/p/abc=s0",
		},
		{
			"other host untouched",
			"https://example.com/img.png?w=400",
			"https://example.com/img.png?w=400",
		},
		{"empty", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageURL(tt.in))
		})
	}
}

func TestImageURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://lh5.googleusercontent.com/p/abc=w408-h272-k-no",
		"https://lh5.googleusercontent.com/p/abc=s0",
		"https://lh5.googleusercontent.com/",
		"https://lh5.googleusercontent.com",
		"//lh4.ggpht.com/p/abc=w80-h80",
		"https://maps.googleapis.com/maps/api/staticmap?center=1,2",
		"not a url at all",
		"",
	}
	for _, in := range inputs {
		once := ImageURL(in)
		assert.Equal(t, once, ImageURL(once), "input %q", in)
	}
}

func TestIsStaticMap(t *testing.T) {
	assert.True(t, IsStaticMap("https://maps.googleapis.com/maps/api/staticmap?center=-7.5,110.7"))
	assert.True(t, IsStaticMap("https://www.google.com/maps/vt/data=abc"))
	assert.False(t, IsStaticMap("https://lh5.googleusercontent.com/p/abc=s0"))
}

func TestRecord(t *testing.T) {
	lat, lng := -7.556, 110.788
	raw := model.RawRecord{
		Name:         " Kopi  Klotok ",
		Address:      " Jl. Raya",
		Phone:        "",
		Rating:       "4.6",
		TotalReviews: "(1,204)",
		CoverImage:   "https://lh5.googleusercontent.com/p/a=w100-h100",
		GalleryImages: []string{
			"https://lh5.googleusercontent.com/p/a=w408-h272",
			"https://lh5.googleusercontent.com/p/a=w100",
			"https://lh5.googleusercontent.com/p/b=w100",
			"",
			"https://lh5.googleusercontent.com/p/c=w100",
			"https://lh5.googleusercontent.com/p/d=w100",
		},
		Reviews:  []string{" great ", "", "ok", "fine", "extra"},
		PlaceURL: "https://www.google.com/maps/place/Kopi/@-7.556,110.788,17z",
		Lat:      &lat,
		Lng:      &lng,
	}

	rec := Record(raw)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "Kopi Klotok", *rec.Name)
	assert.Equal(t, "Jl. Raya", *rec.Address)
	assert.Nil(t, rec.Phone)
	assert.Equal(t, "1,204", *rec.TotalReviews)
	assert.Equal(t, "https://lh5.googleusercontent.com/p/a=s0", *rec.CoverImage)
	assert.Equal(t, []string{
		"https://lh5.googleusercontent.com/p/a=s0",
		"https://lh5.googleusercontent.com/p/b=s0",
		"https://lh5.googleusercontent.com/p/c=s0",
	}, rec.GalleryImages)
	assert.Equal(t, []string{"great", "ok", "fine"}, rec.Reviews)
	require.True(t, rec.HasCoords())
	assert.Equal(t, -7.556, *rec.Lat)
}

func TestRecordCoordinatesBothOrNeither(t *testing.T) {
	lat := 1.5
	rec := Record(model.RawRecord{Name: "x", Lat: &lat})
	assert.Nil(t, rec.Lat)
	assert.Nil(t, rec.Lng)
}
