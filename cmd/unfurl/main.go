package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
	"github.com/fwojciec/unfurl/lru"
	"github.com/fwojciec/unfurl/postgres"
	"github.com/fwojciec/unfurl/redis"
	unfurlslog "github.com/fwojciec/unfurl/slog"
	"github.com/fwojciec/unfurl/sqlite"
	"github.com/fwojciec/unfurl/yaml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config is the base configuration, overlaid by the config file and
	// flags. Set before calling Run().
	Config unfurl.Config

	// Links replaces the configured store. Used by end-to-end tests.
	Links unfurl.LinkService

	// Fetcher replaces the HTTP fetcher. Used by end-to-end tests.
	Fetcher unfurl.Fetcher

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	cfg := unfurl.DefaultConfig()
	cfg.DBPath = defaultDBPath()
	return &Main{Config: cfg}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("unfurl"),
		kong.Description("Extract and serve link preview metadata."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'unfurl --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	cfg := m.Config
	if cli.Config != "" {
		if cfg, err = yaml.LoadConfig(cli.Config); err != nil {
			return fmt.Errorf("failed to load config %q: %w", cli.Config, err)
		}
		if cfg.DBPath == "" {
			cfg.DBPath = m.Config.DBPath
		}
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", unfurl.ErrorMessage(err))
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	deps.Config = cfg
	deps.Logger = logger

	engine, err := m.buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	deps.Engine = engine

	// Extraction alone needs no store.
	if cmd == "extract" {
		return kongCtx.Run(deps)
	}

	links, err := m.openStore(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer m.Close()

	links = unfurlslog.NewLoggingLinkService(links, logger)
	if links, err = lru.NewLinkService(links, cfg.CacheSize); err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	deps.Links = links
	deps.Resolver = &extract.Resolver{
		Links:  links,
		Engine: engine,
		Policy: cfg.StalenessPolicy(),
	}
	deps.Refresher = &extract.Refresher{
		Links:  links,
		Engine: engine,
		Policy: cfg.StalenessPolicy(),
	}

	return kongCtx.Run(deps)
}

// openStore connects to the configured link store.
func (m *Main) openStore(ctx context.Context, cfg unfurl.Config, stderr io.Writer) (unfurl.LinkService, error) {
	if m.Links != nil {
		return m.Links, nil
	}

	switch cfg.Store {
	case "redis":
		if cfg.RedisURL == "" {
			fmt.Fprintln(stderr, "Hint: Set UNFURL_REDIS_URL or --redis-url")
			return nil, unfurl.Errorf(unfurl.EINVALID, "redis store requires a Redis URL")
		}
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, client.Close)
		return redis.NewLinkService(client, ""), nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			fmt.Fprintln(stderr, "Hint: Set UNFURL_POSTGRES_DSN or --postgres-dsn")
			return nil, unfurl.Errorf(unfurl.EINVALID, "postgres store requires a DSN")
		}
		db := postgres.NewDB(cfg.PostgresDSN)
		if err := db.Open(ctx); err != nil {
			return nil, err
		}
		m.closers = append(m.closers, db.Close)
		return postgres.NewLinkService(db), nil
	}

	db := sqlite.NewDB(cfg.DBPath)
	if err := db.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set UNFURL_DB to use a different database path\n")
		return nil, fmt.Errorf("failed to open database at %q: %w", cfg.DBPath, err)
	}
	m.closers = append(m.closers, db.Close)
	return sqlite.NewLinkService(db), nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "unfurl.db"
	}
	dir := filepath.Join(home, ".unfurl")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "unfurl.db")
}
