// Package normalize cleans text and media URLs read from rendered pages.
package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/rendis/placetap/internal/model"
)

const (
	maxGallery = 3
	maxReviews = 3

	// originalSize asks the media host for the unscaled image.
	originalSize = "=s0"
)

// CleanText collapses runs of whitespace, drops leading icon glyphs and
// other noise runes, and trims the result.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeftFunc(s, isNoise)
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// Text is CleanText mapping the empty result to nil.
func Text(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

// isNoise matches runes that appear in front of field values because the
// page renders an icon font glyph or a bullet before the text.
func isNoise(r rune) bool {
	switch r {
	case '+', '(', '"', '\'', '“', '‘', '«', '#':
		return false
	}
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return false
	case unicode.IsSpace(r),
		unicode.In(r, unicode.Co, unicode.Cc, unicode.Cf),
		unicode.IsSymbol(r),
		unicode.IsPunct(r):
		return true
	}
	return false
}

// IsMediaHost reports whether u points at the user-content image host whose
// URLs carry size directives after a trailing '='.
func IsMediaHost(u string) bool {
	parsed, err := url.Parse(withScheme(strings.TrimSpace(u)))
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.HasSuffix(host, ".googleusercontent.com") || strings.HasSuffix(host, ".ggpht.com")
}

// IsStaticMap reports whether u is a rendered map tile rather than a photo.
func IsStaticMap(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "staticmap") ||
		strings.Contains(lower, "/maps/vt") ||
		strings.Contains(lower, "/maps/api/") ||
		strings.Contains(lower, "streetviewpixels")
}

// ImageURL rewrites media-host URLs so that the same photo requested at
// different resolutions compares equal: ".../p/abc=w408-h272-k-no" becomes
// ".../p/abc=s0". Other URLs are returned trimmed.
func ImageURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || !IsMediaHost(u) {
		return u
	}
	u = withScheme(u)

	slash := strings.LastIndexByte(u, '/')
	if eq := strings.IndexByte(u[slash+1:], '='); eq >= 0 {
		u = u[:slash+1+eq]
	}
	return u + originalSize
}

func withScheme(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// Record converts raw extraction output into a persisted record shape.
func Record(raw model.RawRecord) model.Record {
	rec := model.Record{
		Name:         Text(raw.Name),
		Address:      Text(raw.Address),
		Phone:        Text(raw.Phone),
		Rating:       Text(raw.Rating),
		TotalReviews: Text(strings.Trim(CleanText(raw.TotalReviews), "()")),
		PlaceURL:     Text(raw.PlaceURL),
	}

	if cover := ImageURL(raw.CoverImage); cover != "" {
		rec.CoverImage = &cover
	}

	seen := make(map[string]bool)
	for _, g := range raw.GalleryImages {
		g = ImageURL(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		rec.GalleryImages = append(rec.GalleryImages, g)
		if len(rec.GalleryImages) == maxGallery {
			break
		}
	}

	for _, r := range raw.Reviews {
		if r = CleanText(r); r == "" {
			continue
		}
		rec.Reviews = append(rec.Reviews, r)
		if len(rec.Reviews) == maxReviews {
			break
		}
	}

	if raw.Lat != nil && raw.Lng != nil {
		lat, lng := *raw.Lat, *raw.Lng
		rec.Lat, rec.Lng = &lat, &lng
	}

	return rec
}
