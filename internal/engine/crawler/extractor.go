package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/rendis/placetap/internal/engine/extract"
	"github.com/rendis/placetap/internal/engine/surface"
	"github.com/rendis/placetap/internal/model"
)

// Extractor opens one candidate's detail view and reads it.
type Extractor struct {
	surface       surface.Surface
	candidate     string
	detail        string
	detailTimeout time.Duration
	detailSettle  time.Duration
}

func NewExtractor(s surface.Surface, candidateSelector, detailSelector string, timeout, settle time.Duration) *Extractor {
	return &Extractor{
		surface:       s,
		candidate:     candidateSelector,
		detail:        detailSelector,
		detailTimeout: timeout,
		detailSettle:  settle,
	}
}

// Extract activates the index-th candidate and returns its raw record.
// Failures are returned as *ExtractionError unless ctx was canceled.
func (e *Extractor) Extract(ctx context.Context, index int) (model.RawRecord, error) {
	fail := func(reason Reason, err error) (model.RawRecord, error) {
		if ctx.Err() != nil {
			return model.RawRecord{}, ctx.Err()
		}
		return model.RawRecord{}, &ExtractionError{Reason: reason, Index: index, Err: err}
	}

	if err := e.surface.Activate(ctx, e.candidate, index); err != nil {
		return fail(ActivationFailed, err)
	}

	if err := e.surface.WaitForSelector(ctx, e.detail, e.detailTimeout); err != nil {
		if errors.Is(err, surface.ErrSelectorTimeout) {
			return fail(DetailNotLoaded, err)
		}
		return fail(EvaluationError, err)
	}

	if err := e.surface.Wait(ctx, e.detailSettle); err != nil {
		return model.RawRecord{}, err
	}

	snap, err := e.surface.Snapshot(ctx)
	if err != nil {
		return fail(EvaluationError, err)
	}

	raw, err := extract.FromSnapshot(snap)
	if err != nil {
		return fail(EvaluationError, err)
	}
	return raw, nil
}
