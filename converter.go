package unfurl

// Converter turns page HTML into Markdown for enrichment prompts.
type Converter interface {
	Convert(html string) (string, error)
}
