package crawler

import (
	"strconv"
	"strings"

	"github.com/rendis/placetap/internal/model"
)

// Filter decides whether a valid record is kept. Rejected records do not
// consume their identity key.
type Filter func(model.Record) bool

// MinRating keeps records whose rating text parses to at least min.
// Records without a readable rating are dropped.
func MinRating(min float64) Filter {
	return func(r model.Record) bool {
		v, ok := ParseRating(model.Str(r.Rating))
		return ok && v >= min
	}
}

// ParseRating reads "4.6" or "4,6" style rating text.
func ParseRating(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
