package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/unfurl"
)

// DefaultEnrichEndpoint is the page enrichment API used when none is
// configured.
const DefaultEnrichEndpoint = "https://api.microlink.io"

// Ensure Enricher implements unfurl.Enricher at compile time.
var _ unfurl.Enricher = (*Enricher)(nil)

// Enricher queries a third-party page enrichment API that renders the page
// on its side and returns preview metadata.
type Enricher struct {
	client   *http.Client
	endpoint string
	key      string
}

// NewEnricher creates a new Enricher. If client is nil, a client with a 10s
// timeout is used.
func NewEnricher(client *http.Client, endpoint, key string) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint == "" {
		endpoint = DefaultEnrichEndpoint
	}
	return &Enricher{client: client, endpoint: endpoint, key: key}
}

// enrichResponse is the API's response envelope.
type enrichResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Image       *enrichURL `json:"image"`
		Logo        *enrichURL `json:"logo"`
	} `json:"data"`
}

type enrichURL struct {
	URL string `json:"url"`
}

func (u *enrichURL) value() string {
	if u == nil {
		return ""
	}
	return u.URL
}

// Enrich asks the API about req.URL. Every failure, including a missing
// API key, is reported as EUNAVAILABLE.
func (e *Enricher) Enrich(ctx context.Context, req unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
	if e.key == "" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "enrichment API key not configured")
	}

	u, err := url.Parse(e.endpoint)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "invalid enrichment endpoint %q", e.endpoint)
	}
	q := u.Query()
	q.Set("url", req.URL)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "building enrichment request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-key", e.key)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "enrichment request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "enrichment API returned HTTP %d", resp.StatusCode)
	}

	var out enrichResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, DefaultMaxBodyBytes)).Decode(&out); err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "decoding enrichment response: %v", err)
	}
	if out.Status != "" && out.Status != "success" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "enrichment API status %s: %s", out.Status, out.Message)
	}

	m := &unfurl.PageMetadata{
		Title:       out.Data.Title,
		Description: out.Data.Description,
		Image:       unfurl.ResolveURL(req.URL, out.Data.Image.value()),
		Favicon:     unfurl.ResolveURL(req.URL, out.Data.Logo.value()),
	}
	m.Normalize()
	if !m.HasContent() {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "enrichment API returned no metadata for %s", req.URL)
	}
	return m, nil
}

// String implements fmt.Stringer without exposing the key.
func (e *Enricher) String() string {
	return fmt.Sprintf("enricher(%s)", e.endpoint)
}
