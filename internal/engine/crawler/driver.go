package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/rendis/placetap/internal/engine/surface"
)

// Driver reveals more candidates by scrolling the listing.
type Driver struct {
	surface  surface.Surface
	selector string
	delta    int
	settle   time.Duration
}

func NewDriver(s surface.Surface, selector string, delta int, settle time.Duration) *Driver {
	return &Driver{surface: s, selector: selector, delta: delta, settle: settle}
}

// RevealMore scrolls, waits for the listing to settle and returns the
// number of candidates now present.
func (d *Driver) RevealMore(ctx context.Context) (int, error) {
	if err := d.surface.Scroll(ctx, d.delta); err != nil {
		return 0, fmt.Errorf("scrolling: %w", err)
	}
	if err := d.surface.Wait(ctx, d.settle); err != nil {
		return 0, err
	}
	return d.Count(ctx)
}

// Count returns the candidates currently present without scrolling.
func (d *Driver) Count(ctx context.Context) (int, error) {
	n, err := d.surface.CountMatching(ctx, d.selector)
	if err != nil {
		return 0, fmt.Errorf("counting candidates: %w", err)
	}
	return n, nil
}
