// Package crawler runs the discovery-and-extraction loop over a listing.
//
// The loop is strictly sequential: a candidate is activated, its detail
// view read, and the record persisted before the next one is touched,
// because the rendering surface can only show one detail view at a time.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rendis/placetap/internal/engine/normalize"
	"github.com/rendis/placetap/internal/engine/storage"
	"github.com/rendis/placetap/internal/engine/surface"
	"github.com/rendis/placetap/internal/model"
)

const (
	DefaultTarget        = 150
	DefaultMaxStagnation = 8
)

// Termination says why the loop stopped.
type Termination int

const (
	TargetReached Termination = iota + 1
	Stagnant
	Canceled
)

func (t Termination) String() string {
	switch t {
	case TargetReached:
		return "target_reached"
	case Stagnant:
		return "stagnant"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// State is the crawl bookkeeping. It is created when Run starts and only
// the loop mutates it.
type State struct {
	Cursor     int // next candidate to extract; never decreases
	Known      int // candidate count observed by the last discovery
	Stagnation int // consecutive discoveries without growth

	Accepted   int
	Duplicates int
	Failures   int
	Invalid    int
	Filtered   int

	seen *Deduplicator
}

func newState() *State {
	return &State{seen: NewDeduplicator()}
}

// Result is reported once the loop terminates.
type Result struct {
	Reason     Termination
	Accepted   int
	Duplicates int
	Failures   int
	Invalid    int
	Filtered   int
	UniqueSeen int
	Candidates int
}

func (s *State) result(reason Termination) *Result {
	return &Result{
		Reason:     reason,
		Accepted:   s.Accepted,
		Duplicates: s.Duplicates,
		Failures:   s.Failures,
		Invalid:    s.Invalid,
		Filtered:   s.Filtered,
		UniqueSeen: s.seen.Len(),
		Candidates: s.Known,
	}
}

// RunOptions provides optional hooks for the crawl.
type RunOptions struct {
	// OnRecord is called after a record has been persisted.
	OnRecord func(model.Record)
	// Stats, if set, is updated as the crawl progresses.
	Stats *Stats
	// Filters are applied to valid records before deduplication.
	Filters []Filter
}

// Crawler wires the surface, discovery driver, extractor and sink.
type Crawler struct {
	params    model.CrawlParams
	surface   surface.Surface
	driver    *Driver
	extractor *Extractor
	sink      storage.Sink
	logger    *zap.Logger
}

func New(s surface.Surface, sink storage.Sink, params model.CrawlParams, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.Target <= 0 {
		params.Target = DefaultTarget
	}
	if params.MaxStagnation <= 0 {
		params.MaxStagnation = DefaultMaxStagnation
	}
	return &Crawler{
		params:    params,
		surface:   s,
		driver:    NewDriver(s, params.CandidateSelector, params.ScrollDelta, params.ScrollSettle),
		extractor: NewExtractor(s, params.CandidateSelector, params.DetailSelector, params.DetailTimeout, params.DetailSettle),
		sink:      sink,
		logger:    logger,
	}
}

// Run opens the listing and crawls it until the target is reached, the
// listing stops growing, or ctx is canceled. A non-nil error is either a
// fatal failure (navigation, sink) or ctx.Err(); in the latter case the
// partial result is returned alongside it.
func (c *Crawler) Run(ctx context.Context, opts *RunOptions) (*Result, error) {
	if opts == nil {
		opts = &RunOptions{}
	}
	stats := opts.Stats
	if stats == nil {
		stats = &Stats{}
	}
	if stats.Target == 0 {
		stats.Target = c.params.Target
	}

	c.logger.Info("opening listing", zap.String("url", c.params.URL))
	if err := c.surface.Navigate(ctx, c.params.URL, c.params.NavigationTimeout); err != nil {
		return nil, err
	}
	if err := c.surface.WaitForSelector(ctx, c.params.CandidateSelector, c.params.NavigationTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no candidates appeared: %v", surface.ErrNavigationTimeout, err)
	}

	st := newState()
	for {
		if err := ctx.Err(); err != nil {
			return st.result(Canceled), err
		}

		if st.Cursor >= st.Known {
			if c.discover(ctx, st, stats) {
				c.logger.Info("listing stopped growing",
					zap.Int("candidates", st.Known),
					zap.Int("rounds", st.Stagnation))
				return st.result(Stagnant), nil
			}
			continue
		}

		done, err := c.step(ctx, st, stats, opts)
		if err != nil {
			if ctx.Err() != nil {
				return st.result(Canceled), ctx.Err()
			}
			return st.result(0), err
		}
		if done {
			return st.result(TargetReached), nil
		}
	}
}

// discover asks the driver for more candidates and applies the stagnation
// policy. It reports whether the crawl should stop.
func (c *Crawler) discover(ctx context.Context, st *State, stats *Stats) bool {
	n, err := c.driver.RevealMore(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Warn("discovery failed", zap.Error(err))
		n = st.Known
	}

	if n > st.Known {
		c.logger.Debug("candidates loaded", zap.Int("count", n))
		st.Known = n
		st.Stagnation = 0
		stats.Candidates.Store(int64(n))
	} else {
		st.Stagnation++
		c.logger.Debug("no new candidates", zap.Int("count", n), zap.Int("round", st.Stagnation))
	}
	stats.Stagnation.Store(int64(st.Stagnation))

	return st.Stagnation >= c.params.MaxStagnation
}

// step extracts and processes the candidate under the cursor. It reports
// whether the target has been reached.
func (c *Crawler) step(ctx context.Context, st *State, stats *Stats, opts *RunOptions) (bool, error) {
	index := st.Cursor
	raw, err := c.extractor.Extract(ctx, index)
	st.Cursor++
	stats.Processed.Add(1)

	if err != nil {
		var xerr *ExtractionError
		if !errors.As(err, &xerr) {
			return false, err
		}
		st.Failures++
		stats.Failures.Add(1)
		c.logger.Warn("skipping candidate",
			zap.Int("index", index),
			zap.Stringer("reason", xerr.Reason),
			zap.Error(xerr.Err))
		return false, nil
	}

	rec := normalize.Record(raw)
	if !Valid(rec) {
		st.Invalid++
		stats.Invalid.Add(1)
		c.logger.Debug("missing name or address", zap.Int("index", index), zap.String("name", model.Str(rec.Name)))
		return false, nil
	}

	for _, keep := range opts.Filters {
		if !keep(rec) {
			st.Filtered++
			stats.Filtered.Add(1)
			c.logger.Debug("filtered out", zap.Int("index", index), zap.String("name", model.Str(rec.Name)))
			return false, nil
		}
	}

	if !st.seen.Accept(rec) {
		st.Duplicates++
		stats.Duplicates.Add(1)
		c.logger.Debug("duplicate", zap.Int("index", index), zap.String("key", rec.Key()))
		return false, nil
	}

	if err := c.sink.Append(rec); err != nil {
		return false, fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}
	st.Accepted++
	stats.Accepted.Add(1)

	c.logger.Info("record saved",
		zap.Int("n", st.Accepted),
		zap.String("name", model.Str(rec.Name)),
		zap.String("rating", model.Str(rec.Rating)),
		zap.String("image", model.Str(rec.CoverImage)))

	if opts.OnRecord != nil {
		opts.OnRecord(rec)
	}

	if st.Accepted >= c.params.Target {
		return true, nil
	}

	if err := c.surface.Wait(ctx, c.params.ItemPause); err != nil {
		return false, err
	}
	return false, nil
}
