// Package oembed implements an oEmbed consumer for unfurl. JSON responses
// are decoded with encoding/json and XML responses with etree.
package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/unfurl"
)

// Response formats.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Response is an oEmbed provider response. Providers disagree on numeric
// field types, so only the string fields used for previews are read.
type Response struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`

	// Description is not part of oEmbed 1.0 but several providers send it.
	Description string `json:"description"`

	// Error is set by embed-info services that answer 200 with an error.
	Error string `json:"error"`
}

// Metadata converts the response into preview fields.
func (r *Response) Metadata() unfurl.PageMetadata {
	m := unfurl.PageMetadata{
		Title:       r.Title,
		Description: r.Description,
		Image:       r.ThumbnailURL,
	}
	m.Normalize()
	return m
}

// Byline returns "By <author>", or an empty string when the response names
// no author. Callers use it as a last-resort description.
func (r *Response) Byline() string {
	author := unfurl.CleanText(r.AuthorName)
	if author == "" {
		return ""
	}
	return fmt.Sprintf("By %s", author)
}

// Client fetches oEmbed documents through an unfurl.Fetcher.
type Client struct {
	fetcher unfurl.Fetcher
}

// NewClient creates a new Client.
func NewClient(fetcher unfurl.Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

// Lookup asks a provider endpoint about resourceURL.
func (c *Client) Lookup(ctx context.Context, endpoint, resourceURL string) (*Response, error) {
	u, err := BuildURL(endpoint, resourceURL)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, u, FormatJSON)
}

// Fetch retrieves an oEmbed document from a complete endpoint URL, such as
// one discovered from a page's alternate link.
func (c *Client) Fetch(ctx context.Context, oembedURL, format string) (*Response, error) {
	resp, err := c.fetcher.Fetch(ctx, oembedURL)
	if err != nil {
		return nil, err
	}

	var out *Response
	if format == FormatXML || strings.Contains(strings.ToLower(resp.ContentType), "xml") {
		out, err = decodeXML(resp.Body)
	} else {
		out, err = decodeJSON(resp.Body)
	}
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "oembed provider error: %s", out.Error)
	}
	return out, nil
}

// BuildURL constructs a provider request URL. A "{format}" placeholder in
// endpoint is replaced with "json".
func BuildURL(endpoint, resourceURL string) (string, error) {
	endpoint = strings.ReplaceAll(endpoint, "{format}", FormatJSON)

	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() {
		return "", unfurl.Errorf(unfurl.EINVALID, "invalid oembed endpoint %q", endpoint)
	}
	q := u.Query()
	q.Set("url", resourceURL)
	q.Set("format", FormatJSON)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeJSON(body string) (*Response, error) {
	var r Response
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "failed to parse oembed JSON: %v", err)
	}
	return &r, nil
}

func decodeXML(body string) (*Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "failed to parse oembed XML: %v", err)
	}
	root := doc.SelectElement("oembed")
	if root == nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "oembed XML has no <oembed> root")
	}

	text := func(tag string) string {
		if el := root.SelectElement(tag); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}
	return &Response{
		Type:         text("type"),
		Title:        text("title"),
		AuthorName:   text("author_name"),
		AuthorURL:    text("author_url"),
		ProviderName: text("provider_name"),
		ProviderURL:  text("provider_url"),
		ThumbnailURL: text("thumbnail_url"),
		HTML:         text("html"),
		Description:  text("description"),
	}, nil
}
