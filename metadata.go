package unfurl

import (
	"strings"
	"unicode/utf8"
)

// Length caps applied by PageMetadata.Normalize.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 300
)

// Field names reported by PageMetadata.Missing and recorded in traces.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldFavicon     = "favicon"
)

// PageMetadata holds the preview fields extracted from a page.
// An empty string means the field is absent.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
}

// HasContent reports whether any of title, description or image is present.
func (m *PageMetadata) HasContent() bool {
	if m == nil {
		return false
	}
	return m.Title != "" || m.Description != "" || m.Image != ""
}

// Complete reports whether every field is present.
func (m *PageMetadata) Complete() bool {
	return len(m.Missing()) == 0
}

// Missing returns the names of absent fields in a stable order.
func (m *PageMetadata) Missing() []string {
	if m == nil {
		return []string{FieldTitle, FieldDescription, FieldImage, FieldFavicon}
	}
	var missing []string
	if m.Title == "" {
		missing = append(missing, FieldTitle)
	}
	if m.Description == "" {
		missing = append(missing, FieldDescription)
	}
	if m.Image == "" {
		missing = append(missing, FieldImage)
	}
	if m.Favicon == "" {
		missing = append(missing, FieldFavicon)
	}
	return missing
}

// Merge fills fields that are still absent in m from other and returns the
// names of the fields it filled. Present fields are never overwritten.
func (m *PageMetadata) Merge(other *PageMetadata) []string {
	if other == nil {
		return nil
	}
	var filled []string
	fill := func(dst *string, src, name string) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	fill(&m.Title, other.Title, FieldTitle)
	fill(&m.Description, other.Description, FieldDescription)
	fill(&m.Image, other.Image, FieldImage)
	fill(&m.Favicon, other.Favicon, FieldFavicon)
	return filled
}

// Normalize collapses whitespace in every field and caps title and
// description length.
func (m *PageMetadata) Normalize() {
	m.Title = truncate(CleanText(m.Title), MaxTitleLength)
	m.Description = truncate(CleanText(m.Description), MaxDescriptionLength)
	m.Image = strings.TrimSpace(m.Image)
	m.Favicon = strings.TrimSpace(m.Favicon)
}

// CleanText collapses runs of whitespace into single spaces and trims the
// result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
