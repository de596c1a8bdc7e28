package unfurl

import (
	"time"

	"github.com/google/uuid"
)

// Strategy names one step of the extraction chain.
type Strategy string

// Strategies in the order the engine may try them.
const (
	StrategyPrimary         Strategy = "primary"
	StrategyOEmbed          Strategy = "oembed"
	StrategyEmbedInfo       Strategy = "embed-info"
	StrategyWatchPage       Strategy = "watch-page"
	StrategyOEmbedDiscovery Strategy = "oembed-discovery"
	StrategyContent         Strategy = "content"
	StrategyRenderProxy     Strategy = "render-proxy"
	StrategyAMP             Strategy = "amp"
	StrategyThumbnail       Strategy = "thumbnail"
	StrategyEnrichment      Strategy = "enrichment"
	StrategyDefaults        Strategy = "defaults"
)

// TraceEntry records the outcome of one strategy.
type TraceEntry struct {
	Attempt  int           `json:"attempt"`
	Strategy Strategy      `json:"strategy"`
	Duration time.Duration `json:"duration"`
	Filled   []string      `json:"filled,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// ExtractionAttempt describes one call into the engine. It is returned for
// diagnostics and never persisted.
type ExtractionAttempt struct {
	ID           string       `json:"id"`
	TargetURL    string       `json:"targetUrl"`
	Deadline     time.Time    `json:"deadline"`
	AttemptsUsed int          `json:"attemptsUsed"`
	Trace        []TraceEntry `json:"trace"`
}

// NewExtractionAttempt starts an attempt for targetURL.
func NewExtractionAttempt(targetURL string, deadline time.Time) *ExtractionAttempt {
	return &ExtractionAttempt{
		ID:        uuid.New().String(),
		TargetURL: targetURL,
		Deadline:  deadline,
	}
}

// Record appends a trace entry for strategy s. A nil attempt ignores the
// call.
func (a *ExtractionAttempt) Record(s Strategy, begin time.Time, filled []string, err error) {
	if a == nil {
		return
	}
	entry := TraceEntry{
		Attempt:  a.AttemptsUsed,
		Strategy: s,
		Duration: time.Since(begin),
		Filled:   filled,
	}
	if err != nil {
		entry.Err = err.Error()
	}
	a.Trace = append(a.Trace, entry)
}

// Strategies returns the strategies tried, in order, without duplicates.
func (a *ExtractionAttempt) Strategies() []Strategy {
	if a == nil {
		return nil
	}
	seen := make(map[Strategy]bool)
	var out []Strategy
	for _, e := range a.Trace {
		if !seen[e.Strategy] {
			seen[e.Strategy] = true
			out = append(out, e.Strategy)
		}
	}
	return out
}
