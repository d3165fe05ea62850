// Package config resolves crawl settings from defaults, .env files,
// PLACETAP_* environment variables and command-line values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rendis/placetap/internal/engine/extract"
	"github.com/rendis/placetap/internal/model"
)

const (
	DefaultLimit         = 150
	DefaultMaxStagnation = 8
	DefaultSubject       = "colomadu"
	DefaultCategory      = "coffee shop"
	DefaultSlug          = "maps_full"
	DefaultFlushEvery    = 50

	searchBaseURL     = "https://www.google.com/maps/search/"
	candidateSelector = `div[role="article"]`
)

// Environment variables read by Load.
const (
	EnvHeadless   = "PLACETAP_HEADLESS"
	EnvLimit      = "PLACETAP_LIMIT"
	EnvOutput     = "PLACETAP_OUTPUT"
	EnvChromePath = "PLACETAP_CHROME_PATH"
	EnvLogLevel   = "PLACETAP_LOG_LEVEL"
)

// Config holds the settings that can come from the environment. Command
// flags are applied on top of it.
type Config struct {
	Headless      bool
	Limit         int
	OutputDir     string
	ChromePath    string
	LogLevel      string
	Category      string
	MaxStagnation int
}

func Default() Config {
	return Config{
		Limit:         DefaultLimit,
		OutputDir:     ".",
		LogLevel:      "info",
		Category:      DefaultCategory,
		MaxStagnation: DefaultMaxStagnation,
	}
}

// Load reads .env.local and .env (missing files are ignored), then
// applies PLACETAP_* overrides to the defaults. Variables already set in
// the process environment win over the files.
func Load() (Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(Default(), os.Getenv)
}

// FromEnv applies overrides looked up through getenv onto cfg.
func FromEnv(cfg Config, getenv func(string) string) (Config, error) {
	if v := strings.TrimSpace(getenv(EnvHeadless)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s value: %w", EnvHeadless, err)
		}
		cfg.Headless = b
	}
	if v := strings.TrimSpace(getenv(EnvLimit)); v != "" {
		cfg.Limit = ParseLimit(v)
	}
	cfg.OutputDir = valueOrDefault(getenv(EnvOutput), cfg.OutputDir)
	cfg.ChromePath = valueOrDefault(getenv(EnvChromePath), cfg.ChromePath)
	cfg.LogLevel = valueOrDefault(getenv(EnvLogLevel), cfg.LogLevel)
	return cfg, nil
}

// ParseLimit reads a target record count. Anything that is not a positive
// integer yields DefaultLimit.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	return n
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a subject into a file-name stem: lowercase, runs of other
// characters collapsed to "-", trimmed. An empty result falls back to
// DefaultSlug.
func Slugify(s string) string {
	slug := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return DefaultSlug
	}
	return slug
}

// Subject joins positional tokens into the query subject.
func Subject(tokens []string) string {
	s := strings.Join(strings.Fields(strings.Join(tokens, " ")), " ")
	if s == "" {
		return DefaultSubject
	}
	return s
}

// Query builds the search text "<category> in <subject>".
func Query(category, subject string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return category + " in " + subject
}

// SearchURL is the listing address for query. A non-zero zoom centers the
// viewport on lat,lng.
func SearchURL(query string, lat, lng float64, zoom int) string {
	base := searchBaseURL + url.QueryEscape(query)
	if zoom <= 0 {
		return base
	}
	return fmt.Sprintf("%s/@%f,%f,%dz", base, lat, lng, zoom)
}

// Params builds the crawl parameters for subject with the file names
// derived from its slug.
func (c Config) Params(subject string) model.CrawlParams {
	query := Query(c.Category, subject)
	slug := Slugify(subject)
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	return model.CrawlParams{
		Subject:  subject,
		Category: c.Category,
		Query:    query,
		URL:      SearchURL(query, 0, 0, 0),

		Target:        limit,
		MaxStagnation: c.MaxStagnation,

		Headless:   c.Headless,
		ChromePath: c.ChromePath,

		CandidateSelector: candidateSelector,
		DetailSelector:    extract.HeadingSelector,
		ScrollDelta:       6000,

		NavigationTimeout: 60 * time.Second,
		DetailTimeout:     15 * time.Second,
		ScrollSettle:      2 * time.Second,
		DetailSettle:      time.Second,
		ItemPause:         1500 * time.Millisecond,

		OutputDir:  c.OutputDir,
		OutputPath: filepath.Join(c.OutputDir, slug+".parquet"),
		DBPath:     filepath.Join(c.OutputDir, slug+".db"),
		LogPath:    filepath.Join(c.OutputDir, slug+".log"),
		LogLevel:   c.LogLevel,
		FlushEvery: DefaultFlushEvery,
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
