package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rendis/placetap/internal/engine/extract"
	"github.com/rendis/placetap/internal/engine/surface"
	"github.com/rendis/placetap/internal/model"
)

const (
	cardSelector   = `div[role="article"]`
	detailSelector = "h1.DUwDvf"
)

type fakeItem struct {
	html        string
	url         string
	activateErr error
	detailErr   error
}

func place(name, address string) fakeItem {
	return fakeItem{
		html: fmt.Sprintf(`<html><body><h1 class="DUwDvf">%s</h1>`+
			`<button data-item-id="address">%s</button></body></html>`, name, address),
		url: "https://www.google.com/maps/place/x/@-7.556,110.788,17z",
	}
}

func ratedPlace(name, address, rating string) fakeItem {
	it := place(name, address)
	it.html = fmt.Sprintf(`<html><body><h1 class="DUwDvf">%s</h1>`+
		`<div class="F7nice"><span>%s</span><span>(10)</span></div>`+
		`<button data-item-id="address">%s</button></body></html>`, name, rating, address)
	return it
}

// fakeSurface replays a scripted listing. counts[i] is the candidate count
// reported after the (i+1)-th scroll; the last value repeats.
type fakeSurface struct {
	counts []int
	items  []fakeItem

	navErr      error
	listWaitErr error

	scrolls   int
	activated []int
	active    int
	waits     []time.Duration
}

var _ surface.Surface = (*fakeSurface)(nil)

func (f *fakeSurface) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return f.navErr
}

func (f *fakeSurface) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if selector == cardSelector {
		return f.listWaitErr
	}
	return f.items[f.active].detailErr
}

func (f *fakeSurface) Scroll(ctx context.Context, deltaY int) error {
	f.scrolls++
	return nil
}

func (f *fakeSurface) Wait(ctx context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	return ctx.Err()
}

func (f *fakeSurface) visible() int {
	if f.scrolls == 0 || len(f.counts) == 0 {
		return 0
	}
	i := f.scrolls - 1
	if i >= len(f.counts) {
		i = len(f.counts) - 1
	}
	return f.counts[i]
}

func (f *fakeSurface) CountMatching(ctx context.Context, selector string) (int, error) {
	return f.visible(), nil
}

func (f *fakeSurface) Activate(ctx context.Context, selector string, index int) error {
	f.activated = append(f.activated, index)
	if index >= f.visible() || index >= len(f.items) {
		return surface.ErrNoSuchElement
	}
	if err := f.items[index].activateErr; err != nil {
		return err
	}
	f.active = index
	return nil
}

func (f *fakeSurface) Snapshot(ctx context.Context) (extract.Snapshot, error) {
	it := f.items[f.active]
	return extract.Snapshot{URL: it.url, HTML: it.html}, nil
}

func (f *fakeSurface) Close() error { return nil }

type memSink struct {
	records []model.Record
	err     error
}

func (s *memSink) Append(rec model.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memSink) Close() error { return nil }

func (s *memSink) names() []string {
	var out []string
	for _, r := range s.records {
		out = append(out, model.Str(r.Name))
	}
	return out
}

var errDetached = errors.New("node is detached from document")

func testParams(target, maxStagnation int) model.CrawlParams {
	return model.CrawlParams{
		URL:               "https://www.google.com/maps/search/coffee+shop+in+colomadu",
		Target:            target,
		MaxStagnation:     maxStagnation,
		CandidateSelector: cardSelector,
		DetailSelector:    detailSelector,
		ScrollDelta:       6000,
		ScrollSettle:      2 * time.Second,
		DetailTimeout:     15 * time.Second,
		DetailSettle:      time.Second,
		ItemPause:         1500 * time.Millisecond,
	}
}
