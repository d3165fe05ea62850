// Package surface abstracts the browser that renders the listing.
package surface

import (
	"context"
	"errors"
	"time"

	"github.com/rendis/placetap/internal/engine/extract"
)

var (
	// ErrNavigationTimeout means the listing never became usable.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrSelectorTimeout means a waited-for element did not appear in time.
	ErrSelectorTimeout = errors.New("selector timeout")
	// ErrEvaluation means a script or DOM read failed on the page.
	ErrEvaluation = errors.New("evaluation error")
	// ErrNoSuchElement means an index pointed past the matching elements.
	ErrNoSuchElement = errors.New("no such element")
)

// Surface is the subset of browser automation the crawler needs. Only one
// detail view can be active at a time, so implementations are not expected
// to be safe for concurrent use.
type Surface interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Scroll(ctx context.Context, deltaY int) error
	Wait(ctx context.Context, d time.Duration) error
	CountMatching(ctx context.Context, selector string) (int, error)
	// Activate scrolls the index-th element matching selector into view
	// and clicks it.
	Activate(ctx context.Context, selector string, index int) error
	Snapshot(ctx context.Context) (extract.Snapshot, error)
	Close() error
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
