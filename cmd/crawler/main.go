package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"merchwatch/crawler/internal/config"
	"merchwatch/crawler/internal/database"
	"merchwatch/crawler/internal/export"
	"merchwatch/crawler/internal/feed"
	"merchwatch/crawler/internal/importer"
	"merchwatch/crawler/internal/notify"
	"merchwatch/crawler/internal/pipeline"
	"merchwatch/crawler/internal/repair"
	"merchwatch/crawler/internal/resolver"
	"merchwatch/crawler/internal/rules"
	"merchwatch/crawler/internal/store"
	"merchwatch/crawler/internal/worker"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func usage() {
	fmt.Println("Usage: crawler [command] [options]")
	fmt.Println("Commands: import, start, repair-images, export")
	fmt.Println("\nFor command-specific options, use: crawler [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.TargetsCSVPath, "csv", config.GetEnvString("CRAWLER_CSV_PATH", config.DefaultTargetsCSVPath),
		"Path to the targets CSV file (env: CRAWLER_CSV_PATH)")
	addCommonFlags(importCmd, cfg)

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	addCommonFlags(startCmd, cfg)
	startCmd.StringVar(&cfg.FeedLang, "lang", cfg.FeedLang,
		"Feed language code (env: CRAWLER_FEED_LANG)")
	startCmd.StringVar(&cfg.FeedRegion, "region", cfg.FeedRegion,
		"Feed region code (env: CRAWLER_FEED_REGION)")

	repairCmd := flag.NewFlagSet("repair-images", flag.ExitOnError)
	addCommonFlags(repairCmd, cfg)

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	addCommonFlags(exportCmd, cfg)
	exportPath := exportCmd.String("out", "./export.csv", "Path to write the CSV export")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		zerolog.SetGlobalLevel(cfg.LogLevel)
		err = runImport(cfg)

	case "start":
		startCmd.Parse(os.Args[2:])
		zerolog.SetGlobalLevel(cfg.LogLevel)
		err = runStart(cfg)

	case "repair-images":
		repairCmd.Parse(os.Args[2:])
		zerolog.SetGlobalLevel(cfg.LogLevel)
		err = runRepair(cfg)

	case "export":
		exportCmd.Parse(os.Args[2:])
		zerolog.SetGlobalLevel(cfg.LogLevel)
		err = runExport(cfg, *exportPath)

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

// addCommonFlags registers the flags every subcommand shares.
func addCommonFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBPath, "db", config.GetEnvString("CRAWLER_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: CRAWLER_DB_PATH)")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath,
		"Path to a YAML rules override file (env: CRAWLER_RULES_PATH)")
	fs.Func("log-level", "Log level: debug, info, warn, error (env: CRAWLER_LOG_LEVEL)", func(s string) error {
		level, err := zerolog.ParseLevel(s)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
		return nil
	})
	cfg.LogLevel = config.GetEnvLogLevel("CRAWLER_LOG_LEVEL", cfg.LogLevel)
}

// loadRules returns the configured rule set, falling back to the
// built-in defaults when no override file is set.
func loadRules(cfg *config.Config) (*rules.Rules, error) {
	if cfg.RulesPath == "" {
		return rules.Default(), nil
	}
	r, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.RulesPath).Msg("Loaded rules override")
	return r, nil
}

func openStore(cfg *config.Config) (*store.Store, *database.DB, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.New(db), db, nil
}

// runImport bulk-loads tracked targets from the configured CSV file.
func runImport(cfg *config.Config) error {
	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return importer.NewImporter(st).ImportTargets(context.Background(), cfg.TargetsCSVPath)
}

// runStart launches the resident crawl worker until interrupted.
func runStart(cfg *config.Config) error {
	ruleSet, err := loadRules(cfg)
	if err != nil {
		return err
	}

	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	res := resolver.New(ruleSet)
	fetcher := feed.New(res, ruleSet, cfg.FeedLang, cfg.FeedRegion)
	w := worker.New(st, fetcher, pipeline.NewFilter(ruleSet), pipeline.NewScorer(ruleSet), notify.LogNotifier{})

	w.Run(ctx)
	return nil
}

// runRepair executes the offline image backfill pass once.
func runRepair(cfg *config.Config) error {
	ruleSet, err := loadRules(cfg)
	if err != nil {
		return err
	}

	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = repair.New(st, resolver.New(ruleSet), ruleSet).Run(ctx)
	return err
}

// runExport dumps all stored records to a CSV file.
func runExport(cfg *config.Config, outPath string) error {
	st, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return export.ToFile(context.Background(), st, outPath)
}
