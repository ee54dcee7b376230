package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/finscope/finscope/pkg/cache"
	"github.com/finscope/finscope/pkg/config"
	"github.com/finscope/finscope/pkg/content"
	"github.com/finscope/finscope/pkg/feed"
	"github.com/finscope/finscope/pkg/llm"
	"github.com/finscope/finscope/pkg/scheduler"
	"github.com/finscope/finscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] failed to load config: %v", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, cfg.LLM.APIKey)

	log.Printf("[INFO] starting finscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		cancel()
		log.Printf("[ERROR] finscope failed: %v", err)
		os.Exit(1)
	}
	cancel()

	log.Print("[INFO] shutdown complete")
}

// run wires the components together and blocks until the context is done
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	cacheCfg := cfg.GetCacheConfig()
	store, err := cache.NewStore(cacheCfg.Backend, cacheCfg.RedisAddr, cacheCfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("create cache store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close cache store: %v", err)
		}
	}()
	appCache := cache.New(store)

	fetcher := feed.NewHTTPFetcher(cfg.Schedule.SourceTimeout)

	var enricher feed.Enricher
	if extCfg := cfg.GetExtractionConfig(); extCfg.Enabled {
		enricher = content.NewExtractor(extCfg.Timeout, extCfg.UserAgent, extCfg.MinTextLength)
		log.Printf("[INFO] full-text extraction enabled")
	}

	aggregator := feed.NewAggregator(fetcher, enricher, appCache, feed.Config{
		Sources:    cfg.GetSources(),
		MaxItems:   cfg.Schedule.MaxItems,
		MaxWorkers: cfg.Schedule.MaxWorkers,
		TTL:        cacheCfg.FeedTTL,
	})
	aggregator.WarmFromSnapshot(ctx)

	var analyst server.Analyst
	if llmCfg := cfg.GetLLMConfig(); llmCfg.Enabled {
		analyst = llm.NewAnalyst(llmCfg, appCache, cacheCfg.AnalysisTTL)
		log.Printf("[INFO] llm analysis enabled, model %s", llmCfg.Model)
	}

	sched := scheduler.New(aggregator, cfg.Schedule.RefreshInterval)
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg, aggregator, analyst, revision, debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	for _, sec := range secs {
		if sec != "" {
			logOpts = append(logOpts, lgr.Secret(sec))
		}
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
