package model

import (
	"strings"
	"time"
)

// Record represents one place extracted from the listing's detail view.
// Pointer fields are nil when the source did not provide a value.
type Record struct {
	Name          *string  `json:"name"`
	Address       *string  `json:"address"`
	Phone         *string  `json:"phone"`
	Rating        *string  `json:"rating"`
	TotalReviews  *string  `json:"total_reviews"`
	CoverImage    *string  `json:"cover_image"`
	GalleryImages []string `json:"gallery_images"`
	PlaceURL      *string  `json:"place_url"`
	Reviews       []string `json:"reviews"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
}

// RawRecord is what the extraction routine reads from a detail view.
// Empty strings mean the field was not found.
type RawRecord struct {
	Name          string
	Address       string
	Phone         string
	Rating        string
	TotalReviews  string
	CoverImage    string
	GalleryImages []string
	PlaceURL      string
	Reviews       []string
	Lat           *float64
	Lng           *float64
}

// HasCoords reports whether both coordinates are present.
func (r Record) HasCoords() bool {
	return r.Lat != nil && r.Lng != nil
}

// Str returns the value behind p, or "" for nil.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CrawlParams holds all configuration for a crawl session.
type CrawlParams struct {
	Subject  string // free-text locale, e.g. "colomadu"
	Category string // e.g. "coffee shop"
	Query    string // Category + " in " + Subject
	URL      string // listing URL the session starts from

	Target        int // records to accept before stopping
	MaxStagnation int // consecutive non-growing scrolls tolerated

	Headless   bool
	ChromePath string

	CandidateSelector string
	DetailSelector    string
	ScrollDelta       int

	NavigationTimeout time.Duration
	DetailTimeout     time.Duration
	ScrollSettle      time.Duration
	DetailSettle      time.Duration
	ItemPause         time.Duration

	// Optional acceptance filters (zero = disabled)
	MinRating float64
	Near      string  // "lat,lng" or a place name to geocode
	RadiusKm  float64 // used with Near
	AreaFile  string  // GeoJSON polygon file

	OutputDir  string
	OutputPath string // .parquet
	DBPath     string // optional SQLite mirror
	LogPath    string
	LogLevel   string
	FlushEvery int
	TUI        bool
}

// IdentityKey is the dedup key for a place: lowercase, trimmed name and
// address joined by '|'.
func IdentityKey(name, address string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(address))
}

// Key returns the record's IdentityKey.
func (r Record) Key() string {
	return IdentityKey(Str(r.Name), Str(r.Address))
}
