package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
	Config    unfurl.Config
	Links     unfurl.LinkService
	Engine    *extract.Engine
	Resolver  *extract.Resolver
	Refresher *extract.Refresher
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"C" type:"path" env:"UNFURL_CONFIG" help:"YAML configuration file"`
	Store   string `env:"UNFURL_STORE" help:"Link store (sqlite, redis, postgres)"`
	DB      string `env:"UNFURL_DB" help:"SQLite database path"`
	Redis   string `name:"redis-url" env:"UNFURL_REDIS_URL" help:"Redis URL"`
	PG      string `name:"postgres-dsn" env:"UNFURL_POSTGRES_DSN" help:"PostgreSQL connection string"`
	Enrich  string `name:"enrich-key" env:"UNFURL_ENRICH_KEY" help:"Enrichment API key"`
	Gemini  string `name:"gemini-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	Verbose bool   `short:"v" help:"Log every fetch and store operation"`

	Extract ExtractCmd `cmd:"" help:"Extract preview metadata for a URL"`
	Add     AddCmd     `cmd:"" help:"Register a short link and extract its metadata"`
	Show    ShowCmd    `cmd:"" help:"Serve a short link, refreshing stale metadata"`
	Check   CheckCmd   `cmd:"" help:"Report whether a link's metadata is weak or stale"`
	List    ListCmd    `cmd:"" help:"List stored links"`
	Refresh RefreshCmd `cmd:"" help:"Re-extract stale or weak links"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a short link"`
	Serve   ServeCmd   `cmd:"" help:"Serve the JSON preview API"`
}

// apply overlays flag values on cfg. Empty flags leave cfg unchanged.
func (c *CLI) apply(cfg *unfurl.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Store, c.Store)
	set(&cfg.DBPath, c.DB)
	set(&cfg.RedisURL, c.Redis)
	set(&cfg.PostgresDSN, c.PG)
	set(&cfg.EnrichKey, c.Enrich)
	set(&cfg.GeminiKey, c.Gemini)
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	URL   string `arg:"" help:"URL to preview"`
	Trace bool   `short:"t" help:"Print the strategies tried"`
	JSON  bool   `help:"Print the result as JSON"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	Code      string `arg:"" help:"Short code"`
	URL       string `arg:"" help:"Target URL"`
	NoExtract bool   `help:"Store the link without extracting metadata"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Code    string `arg:"" help:"Short code"`
	Crawler bool   `help:"Apply the link-preview crawler freshness window"`
	Force   bool   `short:"f" help:"Re-extract regardless of freshness"`
	JSON    bool   `help:"Print the link as JSON"`
}

// CheckCmd is the "check" subcommand.
type CheckCmd struct {
	Code string `arg:"" help:"Short code"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct{}

// RefreshCmd is the "refresh" subcommand.
type RefreshCmd struct {
	Crawler     bool `help:"Apply the link-preview crawler freshness window"`
	Force       bool `short:"f" help:"Re-extract every link"`
	Concurrency int  `short:"c" default:"4" help:"Concurrent extractions"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Code  string `arg:"" help:"Short code"`
	Force bool   `help:"Confirm deletion"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `default:":8080" env:"UNFURL_ADDR" help:"Listen address"`
}
