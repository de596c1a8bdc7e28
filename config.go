package unfurl

import "time"

// Config holds the tunables of the extraction engine and its collaborators.
type Config struct {
	// FetchTimeout bounds the primary fetch of each attempt.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// StepTimeout bounds each fallback strategy.
	StepTimeout time.Duration `yaml:"step_timeout"`

	// Deadline bounds a whole extraction, retries included.
	Deadline time.Duration `yaml:"deadline"`

	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`

	CrawlerWindow time.Duration `yaml:"crawler_window"`
	HumanWindow   time.Duration `yaml:"human_window"`

	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RequestsPerSecond limits primary fetches per host.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// RenderProxy is a URL template containing "{url}"; empty disables the
	// rendering proxy strategy.
	RenderProxy string `yaml:"render_proxy"`

	// OEmbedEndpoint and EmbedInfoEndpoint serve the video pipeline.
	OEmbedEndpoint    string `yaml:"oembed_endpoint"`
	EmbedInfoEndpoint string `yaml:"embed_info_endpoint"`

	// EnrichEndpoint and EnrichKey configure the enrichment API. The API is
	// used only when EnrichKey is set.
	EnrichEndpoint string `yaml:"enrich_endpoint"`
	EnrichKey      string `yaml:"enrich_key"`

	// GeminiKey enables model-based enrichment when set.
	GeminiKey   string `yaml:"gemini_key"`
	GeminiModel string `yaml:"gemini_model"`

	// ContentExtractor is "trafilatura" or "readability".
	ContentExtractor string `yaml:"content_extractor"`

	Store       string `yaml:"store"`
	DBPath      string `yaml:"db_path"`
	RedisURL    string `yaml:"redis_url"`
	PostgresDSN string `yaml:"postgres_dsn"`
	CacheSize   int    `yaml:"cache_size"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:      8 * time.Second,
		StepTimeout:       4 * time.Second,
		Deadline:          20 * time.Second,
		MaxAttempts:       3,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          4 * time.Second,
		CrawlerWindow:     CrawlerFreshness,
		HumanWindow:       HumanFreshness,
		MaxBodyBytes:      2 << 20,
		RequestsPerSecond: 2,
		OEmbedEndpoint:    "https://www.youtube.com/oembed",
		EmbedInfoEndpoint: "https://noembed.com/embed",
		EnrichEndpoint:    "https://api.microlink.io",
		GeminiModel:       "gemini-2.5-flash",
		ContentExtractor:  "trafilatura",
		Store:             "sqlite",
		CacheSize:         1024,
	}
}

// StalenessPolicy returns the staleness policy described by c.
func (c Config) StalenessPolicy() StalenessPolicy {
	return StalenessPolicy{CrawlerWindow: c.CrawlerWindow, HumanWindow: c.HumanWindow}
}

// Validate returns an error if c contains unusable values.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return Errorf(EINVALID, "max_attempts must be at least 1")
	}
	if c.FetchTimeout <= 0 || c.StepTimeout <= 0 || c.Deadline <= 0 {
		return Errorf(EINVALID, "timeouts must be positive")
	}
	if c.BaseDelay < 0 || c.MaxDelay <= 0 {
		return Errorf(EINVALID, "base_delay must not be negative and max_delay must be positive")
	}
	switch c.ContentExtractor {
	case "trafilatura", "readability", "none":
	default:
		return Errorf(EINVALID, "unknown content extractor %q", c.ContentExtractor)
	}
	switch c.Store {
	case "sqlite", "redis", "postgres":
	default:
		return Errorf(EINVALID, "unknown store %q", c.Store)
	}
	return nil
}
