package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/civil"

	"github.com/okian/almog/internal/adapters/repository"
	"github.com/okian/almog/internal/seed"
	"github.com/okian/almog/pkg/logger"
)

const defaultSeed = 1

func main() {
	var (
		baseURL  = flag.String("url", "", "Base URL of a running service")
		driver   = flag.String("driver", string(repository.SQLite), "Store driver when -url is empty")
		dsn      = flag.String("dsn", "almog.db", "Store DSN when -url is empty")
		table    = flag.String("table", "sessions", "Sessions table name")
		players  = flag.Int("players", seed.DefaultPlayers, "Players per team")
		teams    = flag.String("teams", strings.Join(seed.DefaultTeams, ","), "Comma-separated team names")
		start    = flag.String("start", "", "First day of the season, YYYY-MM-DD")
		weeks    = flag.Int("weeks", seed.DefaultWeeks, "Number of weeks")
		sessions = flag.Int("sessions", seed.DefaultSessionsPerWeek, "Training sessions per player per week")
		rngSeed  = flag.Int64("seed", defaultSeed, "Random seed")
		batch    = flag.Int("batch", seed.DefaultBatchSize, "Rows per insert or POST")
		workers  = flag.Int("workers", seed.DefaultWorkers, "Concurrent POST workers")
		timeout  = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Also write the generated rows to this JSON file")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("seed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := seed.Config{
		BaseURL:         strings.TrimRight(*baseURL, "/"),
		Players:         *players,
		Weeks:           *weeks,
		SessionsPerWeek: *sessions,
		Seed:            *rngSeed,
		BatchSize:       *batch,
		Workers:         *workers,
		Timeout:         *timeout,
		OutputFile:      *output,
	}
	for _, t := range strings.Split(*teams, ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.Teams = append(cfg.Teams, t)
		}
	}
	if *start != "" {
		d, err := civil.ParseDate(*start)
		if err != nil {
			log.Error(ctx, "invalid -start", logger.String("start", *start), logger.Error(err))
			os.Exit(2)
		}
		cfg.Start = d
	}

	if err := run(ctx, cfg, repository.Dialect(*driver), *dsn, *table); err != nil {
		log.Error(ctx, "seeding failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg seed.Config, driver repository.Dialect, dsn, table string) error {
	log := logger.Named("seed")
	recs := seed.Generate(cfg)
	log.Info(ctx, "season generated", logger.Int("records", len(recs)), logger.Int("weeks", cfg.Weeks))

	if cfg.OutputFile != "" {
		if err := seed.WriteFile(cfg.OutputFile, recs); err != nil {
			return err
		}
	}

	if cfg.BaseURL != "" {
		_, err := seed.Post(ctx, cfg, recs)
		return err
	}

	store, err := repository.Open(ctx, driver, dsn, repository.WithTable(table))
	if err != nil {
		return fmt.Errorf("open %s store: %w", driver, err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}
	_, err = seed.Load(ctx, store, recs, cfg.BatchSize)
	return err
}
