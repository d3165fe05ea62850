package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/placetap/internal/model"
)

func ptr[T any](v T) *T { return &v }

func sampleRecords() []model.Record {
	return []model.Record{
		{
			Name:          ptr("Kopi Klotok"),
			Address:       ptr("Jl. Kaliurang KM 16"),
			Phone:         ptr("0812-3456"),
			Rating:        ptr("4.6"),
			TotalReviews:  ptr("1,204"),
			CoverImage:    ptr("https://lh5.googleusercontent.com/p/a=s0"),
			GalleryImages: []string{"https://lh5.googleusercontent.com/p/a=s0", "https://lh5.googleusercontent.com/p/b=s0"},
			PlaceURL:      ptr("https://www.google.com/maps/place/Kopi/@-7.556,110.788,17z"),
			Reviews:       []string{"Great coffee", "Busy"},
			Lat:           ptr(-7.556),
			Lng:           ptr(110.788),
		},
		{
			Name:    ptr("Warung Sederhana"),
			Address: ptr("Jl. Adisucipto"),
		},
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")

	sink, err := NewParquetSink(path, 1)
	require.NoError(t, err)
	for _, r := range sampleRecords() {
		require.NoError(t, sink.Append(r))
	}
	assert.Equal(t, 2, sink.Rows())
	require.NoError(t, sink.Close())

	got, err := ReadParquet(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Kopi Klotok", model.Str(first.Name))
	assert.Equal(t, "1,204", model.Str(first.TotalReviews))
	assert.Equal(t, []string{"Great coffee", "Busy"}, first.Reviews)
	assert.Len(t, first.GalleryImages, 2)
	require.True(t, first.HasCoords())
	assert.InDelta(t, -7.556, *first.Lat, 1e-9)
	assert.InDelta(t, 110.788, *first.Lng, 1e-9)

	second := got[1]
	assert.Equal(t, "Warung Sederhana", model.Str(second.Name))
	assert.Nil(t, second.Phone)
	assert.Nil(t, second.Lat)
	assert.Nil(t, second.Lng)
	assert.Empty(t, second.Reviews)
}

func TestStoreIgnoresDuplicateKeys(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "out.db"))
	require.NoError(t, err)
	defer store.Close()

	recs := sampleRecords()
	n, err := store.InsertBatch(recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dup := recs[0]
	dup.Name = ptr("  KOPI KLOTOK ")
	dup.Address = ptr("jl. kaliurang km 16")
	require.NoError(t, store.Append(dup))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Kopi Klotok", model.Str(loaded[0].Name))
	assert.Equal(t, []string{"Great coffee", "Busy"}, loaded[0].Reviews)
	require.True(t, loaded[0].HasCoords())
	assert.False(t, loaded[1].HasCoords())
	assert.Nil(t, loaded[1].Phone)
}

type recordingSink struct {
	got    []string
	failOn int
	closed bool
}

func (s *recordingSink) Append(rec model.Record) error {
	if s.failOn > 0 && len(s.got)+1 == s.failOn {
		return errors.New("disk full")
	}
	s.got = append(s.got, model.Str(rec.Name))
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestTee(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{failOn: 2}
	sink := Tee(a, b)

	recs := sampleRecords()
	require.NoError(t, sink.Append(recs[0]))
	require.Error(t, sink.Append(recs[1]))

	assert.Equal(t, []string{"Kopi Klotok", "Warung Sederhana"}, a.got)
	assert.Equal(t, []string{"Kopi Klotok"}, b.got)

	require.NoError(t, sink.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
