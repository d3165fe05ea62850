package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/placetap/internal/engine/geo"
	"github.com/rendis/placetap/internal/engine/storage"
	"github.com/rendis/placetap/internal/model"
)

func newExportCmd() *cobra.Command {
	var in, outputPath, format string

	cmd := &cobra.Command{
		Use:   "export --in <file.parquet|file.db> [--format csv|geojson] [--output path]",
		Short: "Convert collected records to CSV or GeoJSON",
		Example: `  placetap export --in colomadu.parquet
  placetap export --in colomadu.db --format geojson --output colomadu.geojson`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return fmt.Errorf("--in is required")
			}
			format = strings.ToLower(format)
			if format != "csv" && format != "geojson" {
				return fmt.Errorf("unsupported format: %s (csv or geojson)", format)
			}
			if outputPath == "" {
				outputPath = strings.TrimSuffix(in, filepath.Ext(in)) + "." + format
			}

			records, err := loadRecords(in)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no records found in %s", in)
			}

			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer f.Close()

			if format == "csv" {
				err = writeCSV(f, records)
			} else {
				err = writeGeoJSON(f, records)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(records), outputPath)
			return f.Close()
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "input .parquet or .db file (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output file (default: input name with the format's extension)")
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or geojson")
	return cmd
}

func loadRecords(path string) ([]model.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return storage.ReadParquet(path)
	case ".db", ".sqlite":
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening db: %w", err)
		}
		store, err := storage.NewStore(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Load()
	}
	return nil, fmt.Errorf("unsupported input %s (want .parquet or .db)", path)
}

func writeCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	cw.Write(storage.Columns)

	for _, r := range records {
		gallery, _ := json.Marshal(orEmpty(r.GalleryImages))
		reviews, _ := json.Marshal(orEmpty(r.Reviews))
		cw.Write([]string{
			model.Str(r.Name),
			model.Str(r.Address),
			model.Str(r.Phone),
			model.Str(r.Rating),
			model.Str(r.TotalReviews),
			model.Str(r.CoverImage),
			string(gallery),
			model.Str(r.PlaceURL),
			string(reviews),
			coord(r.Lat),
			coord(r.Lng),
		})
	}

	cw.Flush()
	return cw.Error()
}

func writeGeoJSON(w io.Writer, records []model.Record) error {
	data, err := json.MarshalIndent(geo.FeatureCollection(records), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func coord(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 6, 64)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
