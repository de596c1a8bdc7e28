package goquery

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/unfurl"
)

// structuredTypes are the JSON-LD @type values describing the page itself.
var structuredTypes = map[string]bool{
	"webpage":          true,
	"aboutpage":        true,
	"collectionpage":   true,
	"itempage":         true,
	"profilepage":      true,
	"article":          true,
	"newsarticle":      true,
	"blogposting":      true,
	"report":           true,
	"techarticle":      true,
	"scholarlyarticle": true,
	"product":          true,
	"videoobject":      true,
}

// fillFromStructuredData fills fields of m that are still absent from
// JSON-LD nodes describing the page. Malformed blocks are skipped.
func fillFromStructuredData(doc *goquery.Document, base *url.URL, m *unfurl.PageMetadata) {
	if m.Title != "" && m.Description != "" && m.Image != "" {
		return
	}
	for _, node := range structuredNodes(doc) {
		if !isPageNode(node) {
			continue
		}
		if m.Title == "" {
			m.Title = firstNonEmpty(stringValue(node["headline"]), stringValue(node["name"]))
		}
		if m.Description == "" {
			m.Description = firstNonEmpty(stringValue(node["description"]))
		}
		if m.Image == "" {
			m.Image = firstResolved(base, append(imageValues(node["image"]), imageValues(node["thumbnailUrl"])...))
		}
	}
}

func structuredNodes(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		collectNodes(v, &nodes)
	})
	return nodes
}

// collectNodes flattens arrays and @graph wrappers into a list of objects in
// document order.
func collectNodes(v any, out *[]map[string]any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			collectNodes(item, out)
		}
	case map[string]any:
		*out = append(*out, t)
		if graph, ok := t["@graph"]; ok {
			collectNodes(graph, out)
		}
	}
}

func isPageNode(node map[string]any) bool {
	for _, typ := range stringValues(node["@type"]) {
		typ = strings.ToLower(typ)
		if i := strings.LastIndexAny(typ, "/:"); i >= 0 {
			typ = typ[i+1:]
		}
		if structuredTypes[typ] {
			return true
		}
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func stringValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// imageValues reads an ImageObject, URL string, or list of either.
func imageValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case map[string]any:
		return []string{firstNonEmpty(stringValue(t["url"]), stringValue(t["contentUrl"]))}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, imageValues(item)...)
		}
		return out
	}
	return nil
}
