package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rendis/placetap/internal/model"
)

// FeatureCollection turns records into point features. Records without
// coordinates are skipped.
func FeatureCollection(records []model.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		if !r.HasCoords() {
			continue
		}
		f := geojson.NewFeature(orb.Point{*r.Lng, *r.Lat})
		f.Properties["name"] = model.Str(r.Name)
		f.Properties["address"] = model.Str(r.Address)
		setIf(f.Properties, "phone", r.Phone)
		setIf(f.Properties, "rating", r.Rating)
		setIf(f.Properties, "total_reviews", r.TotalReviews)
		setIf(f.Properties, "cover_image", r.CoverImage)
		setIf(f.Properties, "place_url", r.PlaceURL)
		if len(r.GalleryImages) > 0 {
			f.Properties["gallery_images"] = r.GalleryImages
		}
		if len(r.Reviews) > 0 {
			f.Properties["reviews"] = r.Reviews
		}
		fc.Append(f)
	}
	return fc
}

func setIf(p geojson.Properties, key string, v *string) {
	if v != nil {
		p[key] = *v
	}
}
