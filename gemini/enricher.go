// Package gemini implements model-based metadata enrichment for unfurl
// using Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/unfurl"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultMaxPromptTokens bounds the page content sent to the model.
const DefaultMaxPromptTokens = 8000

// Ensure Enricher implements unfurl.Enricher at compile time.
var _ unfurl.Enricher = (*Enricher)(nil)

// Enricher asks Gemini to write a title and description for a page whose
// markup carries no usable metadata.
type Enricher struct {
	client    *genai.Client
	converter unfurl.Converter
	counter   unfurl.TokenCounter
	model     string
	maxTokens int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(e *Enricher) {
		e.model = model
	}
}

// WithMaxPromptTokens bounds the page content included in the prompt.
func WithMaxPromptTokens(n int) Option {
	return func(e *Enricher) {
		e.maxTokens = n
	}
}

// NewEnricher creates a new Enricher. The converter turns page HTML into
// Markdown for the prompt; counter may be nil to skip the token budget.
func NewEnricher(client *genai.Client, converter unfurl.Converter, counter unfurl.TokenCounter, opts ...Option) *Enricher {
	e := &Enricher{
		client:    client,
		converter: converter,
		counter:   counter,
		model:     DefaultModel,
		maxTokens: DefaultMaxPromptTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns a model-written title and description for the page. It
// needs the page HTML; without it, or on any service failure, it returns
// EUNAVAILABLE.
func (e *Enricher) Enrich(ctx context.Context, req unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
	if req.URL == "" {
		return nil, unfurl.Errorf(unfurl.EINVALID, "URL required")
	}
	if e.client == nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "gemini client not configured")
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "no page content to summarize")
	}

	content, err := e.converter.Convert(req.HTML)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "preparing page content: %s", unfurl.ErrorMessage(err))
	}
	content, err = TruncateToTokens(ctx, e.counter, content, e.maxTokens)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "counting tokens: %v", err)
	}

	result, err := e.client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildUserPrompt(req.URL, content)}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "gemini: %v", err)
	}
	if result == nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "gemini returned nil result")
	}
	return ParseResponse(result.Text())
}

// BuildConfig returns the GenerateContentConfig for enrichment calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You write link preview metadata. Given a web page, reply with a JSON object with the keys \"title\" and \"description\". " +
					"The title names the page in at most 80 characters. The description summarizes the page in one or two sentences of at most 250 characters. " +
					"Use only information present in the page.",
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
}

// BuildUserPrompt builds the prompt containing the page URL and content.
func BuildUserPrompt(pageURL, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<url>%s</url>\n", pageURL)
	fmt.Fprintf(&sb, "<page>\n%s\n</page>\n", content)
	return sb.String()
}

// ParseResponse decodes the model's JSON reply. A reply wrapped in a
// Markdown code fence is accepted.
func ParseResponse(text string) (*unfurl.PageMetadata, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var reply struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &reply); err != nil {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "decoding gemini reply: %v", err)
	}
	m := &unfurl.PageMetadata{Title: reply.Title, Description: reply.Description}
	m.Normalize()
	if !m.HasContent() {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "gemini reply is empty")
	}
	return m, nil
}

// TruncateToTokens shortens text until counter reports at most max tokens.
// A nil counter or non-positive max returns text unchanged.
func TruncateToTokens(ctx context.Context, counter unfurl.TokenCounter, text string, max int) (string, error) {
	if counter == nil || max <= 0 {
		return text, nil
	}
	for range 8 {
		n, err := counter.CountTokens(ctx, text)
		if err != nil {
			return "", err
		}
		if n <= max {
			return text, nil
		}
		runes := []rune(text)
		keep := len(runes) * max / n * 9 / 10
		if keep <= 0 {
			return "", nil
		}
		text = string(runes[:keep])
	}
	return text, nil
}
