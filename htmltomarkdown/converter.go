// Package htmltomarkdown turns fetched pages into compact Markdown for
// model prompts using html-to-markdown.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/unfurl"
)

// Ensure Converter implements unfurl.Converter at compile time.
var _ unfurl.Converter = (*Converter)(nil)

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// Converter converts page HTML to Markdown.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert transforms html into Markdown with runs of blank lines collapsed.
// Returns EPARSE for empty input.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", unfurl.Errorf(unfurl.EPARSE, "empty HTML input")
	}

	md, err := c.conv.ConvertString(html)
	if err != nil {
		return "", unfurl.Errorf(unfurl.EPARSE, "converting HTML: %v", err)
	}
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(md, "\n\n")), nil
}
