// Package extract reads a place record out of a rendered detail view.
//
// The extraction works on a static HTML snapshot so it can be exercised
// without a browser; the rendering surface only has to hand over the
// document and the current address.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rendis/placetap/internal/engine/normalize"
	"github.com/rendis/placetap/internal/model"
)

// Selectors used on the detail view.
const (
	HeadingSelector = "h1.DUwDvf"

	addressSelector = `[data-item-id="address"]`
	phoneSelector   = `[data-item-id^="phone"]`
	ratingSelector  = "div.F7nice"
	reviewSelector  = "[data-review-id]"
	reviewBody      = ".wiI7pd"

	maxGallery = 3
	maxReviews = 3
)

// coordPattern matches the "@<lat>,<lng>" viewport segment of a maps URL.
var coordPattern = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)

// Snapshot is the detail view as captured from the rendering surface.
type Snapshot struct {
	URL  string
	HTML string
}

// FromSnapshot parses the snapshot and reads every record field.
func FromSnapshot(s Snapshot) (model.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return model.RawRecord{}, err
	}
	return FromDocument(doc, s.URL), nil
}

// FromDocument reads every record field from an already parsed document.
func FromDocument(doc *goquery.Document, pageURL string) model.RawRecord {
	raw := model.RawRecord{
		Name:     name(doc),
		Address:  text(doc.Find(addressSelector).First()),
		Phone:    text(doc.Find(phoneSelector).First()),
		PlaceURL: squash(pageURL),
	}

	raw.Rating, raw.TotalReviews = rating(doc)
	raw.CoverImage = coverImage(doc)
	raw.GalleryImages = gallery(doc)
	raw.Reviews = reviews(doc)
	raw.Lat, raw.Lng = Coordinates(pageURL)

	return raw
}

// Coordinates parses "@lat,lng" out of a detail URL. Both values are
// returned together or both are nil.
func Coordinates(pageURL string) (lat, lng *float64) {
	m := coordPattern.FindStringSubmatch(pageURL)
	if m == nil {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(m[1], 64)
	ln, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || la < -90 || la > 90 || ln < -180 || ln > 180 {
		return nil, nil
	}
	return &la, &ln
}

func name(doc *goquery.Document) string {
	if n := text(doc.Find(HeadingSelector).First()); n != "" {
		return n
	}
	return text(doc.Find("h1").First())
}

func rating(doc *goquery.Document) (value, total string) {
	block := doc.Find(ratingSelector).First()
	if block.Length() == 0 {
		return "", ""
	}
	// Rating is the first span of the block; the count sits in the second
	// direct child span as "(1,234)".
	value = text(block.Find("span").First())
	total = text(block.ChildrenFiltered("span").Eq(1))
	if total == "" {
		total = text(block.Find("span:nth-child(2)").First())
	}
	total = strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(total))
	return value, total
}

func coverImage(doc *goquery.Document) string {
	var cover string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := imgSrc(img)
		if normalize.IsMediaHost(src) && !normalize.IsStaticMap(src) {
			cover = src
			return false
		}
		return true
	})
	if cover != "" {
		return cover
	}
	if src := imgSrc(doc.Find("button img").First()); src != "" {
		return src
	}
	og, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	return strings.TrimSpace(og)
}

func gallery(doc *goquery.Document) []string {
	var images []string
	seen := make(map[string]bool)
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := imgSrc(img)
		if !normalize.IsMediaHost(src) || normalize.IsStaticMap(src) {
			return true
		}
		key := normalize.ImageURL(src)
		if seen[key] {
			return true
		}
		seen[key] = true
		images = append(images, src)
		return len(images) < maxGallery
	})
	return images
}

func reviews(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find(reviewSelector).EachWithBreak(func(_ int, r *goquery.Selection) bool {
		// Nested elements repeat the id of their review card.
		id, _ := r.Attr("data-review-id")
		if seen[id] {
			return true
		}
		body := text(r.Find(reviewBody).First())
		if body == "" {
			body = text(r)
		}
		if body == "" {
			return true
		}
		seen[id] = true
		out = append(out, body)
		return len(out) < maxReviews
	})
	return out
}

func imgSrc(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	src, _ := img.Attr("src")
	if strings.HasPrefix(src, "data:") {
		src = ""
	}
	if src == "" {
		src, _ = img.Attr("data-src")
	}
	return strings.TrimSpace(src)
}

func text(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return squash(s.Text())
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
