package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
	"github.com/fwojciec/unfurl/gemini"
	"github.com/fwojciec/unfurl/goquery"
	"github.com/fwojciec/unfurl/htmltomarkdown"
	unfurlhttp "github.com/fwojciec/unfurl/http"
	"github.com/fwojciec/unfurl/oembed"
	"github.com/fwojciec/unfurl/readability"
	unfurlslog "github.com/fwojciec/unfurl/slog"
	"github.com/fwojciec/unfurl/trafilatura"
	"github.com/fwojciec/unfurl/youtube"
	"google.golang.org/genai"
)

// buildEngine wires the extraction engine described by cfg.
func (m *Main) buildEngine(ctx context.Context, cfg unfurl.Config, logger *slog.Logger) (*extract.Engine, error) {
	var base unfurl.Fetcher = m.Fetcher
	if base == nil {
		base = unfurlhttp.NewFetcher(
			unfurlhttp.WithTimeout(cfg.FetchTimeout),
			unfurlhttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
		)
	}
	fetcher := unfurlslog.NewLoggingFetcher(base, logger, "primary")
	parser := goquery.NewParser()

	engine := &extract.Engine{
		Fetcher: fetcher,
		Parser:  parser,
		Video: youtube.NewExtractor(fetcher, parser,
			youtube.WithOEmbedEndpoint(cfg.OEmbedEndpoint),
			youtube.WithEmbedInfoEndpoint(cfg.EmbedInfoEndpoint),
			youtube.WithStepTimeout(cfg.StepTimeout),
		),
		OEmbed:  oembed.NewClient(fetcher),
		Limiter: extract.NewDomainLimiter(cfg.RequestsPerSecond),
		Retry: extract.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
		},
		FetchTimeout: cfg.FetchTimeout,
		StepTimeout:  cfg.StepTimeout,
		Deadline:     cfg.Deadline,
	}

	switch cfg.ContentExtractor {
	case "trafilatura":
		engine.Content = unfurlslog.NewLoggingContentExtractor(trafilatura.NewExtractor(), logger)
	case "readability":
		engine.Content = unfurlslog.NewLoggingContentExtractor(readability.NewExtractor(), logger)
	}

	if cfg.RenderProxy != "" {
		engine.Renderer = unfurlslog.NewLoggingFetcher(unfurlhttp.NewProxyFetcher(base, cfg.RenderProxy), logger, "render")
	}

	if cfg.EnrichKey != "" {
		api := unfurlhttp.NewEnricher(nil, cfg.EnrichEndpoint, cfg.EnrichKey)
		engine.Enrichers = append(engine.Enrichers, unfurlslog.NewLoggingEnricher(api, logger, "api"))
	}

	if cfg.GeminiKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		counter, err := gemini.NewTokenCounter(cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		model := gemini.NewEnricher(client, htmltomarkdown.NewConverter(), counter, gemini.WithModel(cfg.GeminiModel))
		engine.Enrichers = append(engine.Enrichers, unfurlslog.NewLoggingEnricher(model, logger, "gemini"))
	}

	return engine, nil
}
