package extract

import (
	"context"
	"time"

	"github.com/fwojciec/unfurl"
)

// fallbackStep is one strategy of the fallback chain. run returns the
// metadata it found, or an error when the strategy failed.
type fallbackStep struct {
	strategy unfurl.Strategy
	run      func(ctx context.Context) (*unfurl.PageMetadata, error)
}

// fallback runs the chain for target after the primary pass came up short.
// Steps run one at a time, each under its own timeout, fill only fields that
// are still absent, and stop once m is no longer weak.
func (e *Engine) fallback(ctx context.Context, target string, primary *page, m *unfurl.PageMetadata, attempt *unfurl.ExtractionAttempt) {
	var ampURL string
	if primary != nil {
		ampURL = primary.doc.AMPURL
	}

	var html string
	if primary != nil {
		html = primary.html
	}

	var steps []fallbackStep
	if e.Renderer != nil {
		steps = append(steps, fallbackStep{unfurl.StrategyRenderProxy, func(ctx context.Context) (*unfurl.PageMetadata, error) {
			p, err := e.fetchPage(ctx, e.Renderer, target)
			if err != nil {
				return nil, err
			}
			if ampURL == "" {
				ampURL = p.doc.AMPURL
			}
			if html == "" {
				html = p.html
			}
			return declared(p.doc), nil
		}})
	}
	steps = append(steps,
		fallbackStep{unfurl.StrategyAMP, func(ctx context.Context) (*unfurl.PageMetadata, error) {
			if ampURL == "" {
				return nil, nil
			}
			p, err := e.fetchPage(ctx, e.Fetcher, ampURL)
			if err != nil {
				return nil, err
			}
			return declared(p.doc), nil
		}},
		fallbackStep{unfurl.StrategyThumbnail, func(context.Context) (*unfurl.PageMetadata, error) {
			id, ok := unfurl.VideoID(target)
			if !ok {
				return nil, nil
			}
			return &unfurl.PageMetadata{Image: unfurl.VideoThumbnailURL(id)}, nil
		}},
	)
	for _, enricher := range e.Enrichers {
		steps = append(steps, fallbackStep{unfurl.StrategyEnrichment, func(ctx context.Context) (*unfurl.PageMetadata, error) {
			if m.HasContent() {
				return nil, nil
			}
			return enricher.Enrich(ctx, unfurl.EnrichRequest{URL: target, HTML: html})
		}})
	}

	for _, s := range steps {
		if !unfurl.IsWeak(m) || ctx.Err() != nil {
			return
		}
		begin := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout())
		found, err := s.run(stepCtx)
		cancel()
		if found == nil && err == nil {
			// Not applicable to this page.
			continue
		}
		var filled []string
		if found != nil {
			found.Normalize()
			filled = m.Merge(found)
		}
		attempt.Record(s.strategy, begin, filled, err)
	}
}
