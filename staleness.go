package unfurl

import "time"

// Freshness windows for stored metadata. Social preview crawlers get the
// shorter window.
const (
	CrawlerFreshness = 6 * time.Hour
	HumanFreshness   = 12 * time.Hour
)

// RefreshContext describes who is asking for a link's metadata.
type RefreshContext struct {
	// Forced requests re-extraction regardless of age or quality.
	Forced bool

	// IsCrawler is true when the request comes from a link-preview bot.
	IsCrawler bool
}

// StalenessPolicy decides when stored metadata must be extracted again.
type StalenessPolicy struct {
	CrawlerWindow time.Duration
	HumanWindow   time.Duration
}

// DefaultStalenessPolicy returns the policy using CrawlerFreshness and
// HumanFreshness.
func DefaultStalenessPolicy() StalenessPolicy {
	return StalenessPolicy{
		CrawlerWindow: CrawlerFreshness,
		HumanWindow:   HumanFreshness,
	}
}

// Window returns the freshness window for the calling context.
func (p StalenessPolicy) Window(rc RefreshContext) time.Duration {
	if rc.IsCrawler {
		return p.CrawlerWindow
	}
	return p.HumanWindow
}

// ShouldRefresh reports whether record must be extracted again before it is
// served at time now.
func (p StalenessPolicy) ShouldRefresh(record *LinkRecord, now time.Time, rc RefreshContext) bool {
	if rc.Forced || record == nil {
		return true
	}
	if IsWeak(&record.Metadata) {
		return true
	}
	if record.LastUpdatedAt.IsZero() {
		return true
	}
	return now.Sub(record.LastUpdatedAt) > p.Window(rc)
}

// ShouldRefresh applies the default staleness policy.
func ShouldRefresh(record *LinkRecord, now time.Time, rc RefreshContext) bool {
	return DefaultStalenessPolicy().ShouldRefresh(record, now, rc)
}
