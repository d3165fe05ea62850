package storage

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/rendis/placetap/internal/model"
)

// row is the Parquet layout of a record. Empty strings are written as nulls.
type row struct {
	Name          string   `parquet:"name,optional"`
	Address       string   `parquet:"address,optional"`
	Phone         string   `parquet:"phone,optional"`
	Rating        string   `parquet:"rating,optional"`
	TotalReviews  string   `parquet:"total_reviews,optional"`
	CoverImage    string   `parquet:"cover_image,optional"`
	GalleryImages []string `parquet:"gallery_images,list"`
	PlaceURL      string   `parquet:"place_url,optional"`
	Reviews       []string `parquet:"reviews,list"`
	Lat           *float64 `parquet:"lat"`
	Lng           *float64 `parquet:"lng"`
}

func toRow(r model.Record) row {
	return row{
		Name:          model.Str(r.Name),
		Address:       model.Str(r.Address),
		Phone:         model.Str(r.Phone),
		Rating:        model.Str(r.Rating),
		TotalReviews:  model.Str(r.TotalReviews),
		CoverImage:    model.Str(r.CoverImage),
		GalleryImages: r.GalleryImages,
		PlaceURL:      model.Str(r.PlaceURL),
		Reviews:       r.Reviews,
		Lat:           r.Lat,
		Lng:           r.Lng,
	}
}

func (w row) record() model.Record {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return model.Record{
		Name:          opt(w.Name),
		Address:       opt(w.Address),
		Phone:         opt(w.Phone),
		Rating:        opt(w.Rating),
		TotalReviews:  opt(w.TotalReviews),
		CoverImage:    opt(w.CoverImage),
		GalleryImages: w.GalleryImages,
		PlaceURL:      opt(w.PlaceURL),
		Reviews:       w.Reviews,
		Lat:           w.Lat,
		Lng:           w.Lng,
	}
}

// ParquetSink streams records into a Parquet file. Rows are buffered into
// row groups of flushEvery records; the file is only readable after Close
// writes the footer.
type ParquetSink struct {
	f          *os.File
	w          *parquet.GenericWriter[row]
	flushEvery int
	pending    int
	rows       int
}

// NewParquetSink creates (or truncates) path and opens a writer on it.
func NewParquetSink(path string, flushEvery int) (*ParquetSink, error) {
	if flushEvery <= 0 {
		flushEvery = 1
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating parquet file: %w", err)
	}
	w := parquet.NewGenericWriter[row](f, parquet.Compression(&parquet.Snappy))
	return &ParquetSink{f: f, w: w, flushEvery: flushEvery}, nil
}

func (s *ParquetSink) Append(rec model.Record) error {
	if _, err := s.w.Write([]row{toRow(rec)}); err != nil {
		return fmt.Errorf("writing parquet row: %w", err)
	}
	s.rows++
	s.pending++
	if s.pending >= s.flushEvery {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flushing parquet row group: %w", err)
		}
		s.pending = 0
	}
	return nil
}

// Rows returns how many records were appended.
func (s *ParquetSink) Rows() int {
	return s.rows
}

func (s *ParquetSink) Close() error {
	if err := s.w.Close(); err != nil {
		s.f.Close()
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return fmt.Errorf("syncing parquet file: %w", err)
	}
	return s.f.Close()
}

// ReadParquet loads every record from a file written by ParquetSink.
func ReadParquet(path string) ([]model.Record, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("reading parquet: %w", err)
	}
	records := make([]model.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
