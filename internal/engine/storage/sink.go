package storage

import (
	"errors"

	"github.com/rendis/placetap/internal/model"
)

// Columns is the fixed, ordered output schema shared by every sink.
var Columns = []string{
	"name", "address", "phone", "rating", "total_reviews",
	"cover_image", "gallery_images", "place_url", "reviews",
	"lat", "lng",
}

// Sink receives accepted records in order. Append returns only after the
// row has been handed to the underlying writer.
type Sink interface {
	Append(rec model.Record) error
	Close() error
}

type tee []Sink

// Tee writes every record to each sink in turn, stopping at the first
// failure.
func Tee(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return tee(sinks)
}

func (t tee) Append(rec model.Record) error {
	for _, s := range t {
		if err := s.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
