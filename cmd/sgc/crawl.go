package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/scholargraph/internal/crawler"
	"github.com/matsen/scholargraph/internal/entity"
	"github.com/matsen/scholargraph/internal/graph"
	"github.com/matsen/scholargraph/internal/scholar"
	"github.com/matsen/scholargraph/internal/store"
)

var (
	crawlSeed  string
	crawlSteps int
)

func init() {
	crawlCmd.Flags().StringVar(&crawlSeed, "seed", "", "Author name to start from (overrides config)")
	crawlCmd.Flags().IntVar(&crawlSteps, "steps", -1, "Request budget for this run, 0 for unbounded (overrides config)")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the co-authorship network from a seed author",
	Long: `Crawl the co-authorship network starting from an author name search.

Discovered authors and publications persist in the SQLite store as
they are resolved, so an interrupted crawl keeps everything harvested
so far.

Examples:
  sgc crawl --seed "jane doe"
  sgc crawl --seed "jane doe" --steps 50
  sgc crawl --config crawl.yml`,
	RunE: runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	seed := cfg.Seed
	if crawlSeed != "" {
		seed = crawlSeed
	}
	if seed == "" {
		fmt.Fprintln(os.Stderr, "error: no seed author (use --seed or set seed in the config file)")
		os.Exit(ExitConfigError)
	}
	steps := cfg.Steps
	if crawlSteps >= 0 {
		steps = crawlSteps
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer db.Close()

	mint := entity.NewRandomMinter()
	g := graph.New(mint)

	fetcher := crawler.NewHTTPFetcher(
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithRateLimit(cfg.RequestsPerSecond),
	)

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithOperator(&terminalOperator{in: os.Stdin, out: os.Stderr}),
		crawler.WithSink(db),
		crawler.WithMaxHops(cfg.MaxHops),
		crawler.WithProfilePages(cfg.MaxProfilePages),
		crawler.WithSearchPages(cfg.MaxSearchPages),
		crawler.WithPoolSize(cfg.PoolSize),
		crawler.WithJitter(crawler.NewJitter(
			cfg.Delay.Mu, cfg.Delay.Sigma, cfg.Delay.Divisor, time.Now().UnixNano())),
	}
	if len(cfg.RobotMarkers) > 0 {
		opts = append(opts, crawler.WithRobotMarkers(cfg.RobotMarkers))
	}

	sched := crawler.New(fetcher, scholar.New(), g, mint, opts...)

	logger.Info("starting crawl", "seed", seed, "steps", steps,
		"max_hops", cfg.MaxHops, "store", cfg.StorePath, "run", db.RunID())

	err = sched.SearchAuthors(cmd.Context(), seed, steps)
	if errors.Is(err, crawler.ErrCrawlAborted) {
		logger.Warn("crawl aborted, partial results persisted", "graph", g.Size())
		os.Exit(ExitAborted)
	}
	if err != nil {
		return err
	}

	logger.Info("crawl finished", "graph", g.Size(),
		"requests", sched.Processed(), "pending", sched.QueueDepth())
	return nil
}
