package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rendis/placetap/internal/model"
)

// Store mirrors accepted records into SQLite. Every Append commits, so
// the rows survive a crash that leaves the Parquet output unfinished.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity_key TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT,
		rating TEXT,
		total_reviews TEXT,
		cover_image TEXT,
		gallery_images TEXT,
		place_url TEXT,
		reviews TEXT,
		lat REAL,
		lng REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(identity_key)
	);
	CREATE INDEX IF NOT EXISTS idx_places_coords ON places(lat, lng);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Append inserts one record; an existing identity key is left untouched.
func (s *Store) Append(rec model.Record) error {
	_, err := s.InsertBatch([]model.Record{rec})
	return err
}

// InsertBatch inserts records in one transaction and returns how many rows
// were new.
func (s *Store) InsertBatch(records []model.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO places
		(identity_key, name, address, phone, rating, total_reviews,
		 cover_image, gallery_images, place_url, reviews, lat, lng)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		gallery, _ := json.Marshal(nonNil(r.GalleryImages))
		reviews, _ := json.Marshal(nonNil(r.Reviews))
		res, err := stmt.Exec(
			r.Key(), model.Str(r.Name), model.Str(r.Address),
			nullString(r.Phone), nullString(r.Rating), nullString(r.TotalReviews),
			nullString(r.CoverImage), string(gallery), nullString(r.PlaceURL),
			string(reviews), nullFloat(r.Lat), nullFloat(r.Lng),
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting %q: %w", model.Str(r.Name), err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM places").Scan(&count)
	return count, err
}

// Load returns every stored record in insertion order.
func (s *Store) Load() ([]model.Record, error) {
	rows, err := s.db.Query(`
		SELECT name, address, phone, rating, total_reviews, cover_image,
		       gallery_images, place_url, reviews, lat, lng
		FROM places ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			name, address                                  string
			phone, rating, total, cover, gallery, url, rev sql.NullString
			lat, lng                                       sql.NullFloat64
		)
		if err := rows.Scan(&name, &address, &phone, &rating, &total, &cover,
			&gallery, &url, &rev, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}

		r := model.Record{
			Name:         &name,
			Address:      &address,
			Phone:        fromNull(phone),
			Rating:       fromNull(rating),
			TotalReviews: fromNull(total),
			CoverImage:   fromNull(cover),
			PlaceURL:     fromNull(url),
		}
		if gallery.Valid {
			json.Unmarshal([]byte(gallery.String), &r.GalleryImages)
		}
		if rev.Valid {
			json.Unmarshal([]byte(rev.String), &r.Reviews)
		}
		if lat.Valid && lng.Valid {
			la, ln := lat.Float64, lng.Float64
			r.Lat, r.Lng = &la, &ln
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
