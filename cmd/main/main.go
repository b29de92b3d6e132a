package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"theater-recon/internal/config"
	"theater-recon/internal/fileio"
	"theater-recon/internal/reconcile/handler"
	"theater-recon/internal/reconcile/model"
	"theater-recon/internal/reconcile/service"
	"theater-recon/internal/search"
	serverhttp "theater-recon/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	client, err := search.NewClient(search.ClientConfig{
		BaseURL:   cfg.SearchBaseURL,
		Timeout:   cfg.SearchTimeout,
		RateLimit: rate.Limit(cfg.SearchRPS),
	}, logger.With().Str("component", "search").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("search client")
	}

	engine := service.NewEngine(client, service.NewScorer(service.NewChainDirectory()), logger.With().Str("component", "matcher").Logger())
	reviewer := service.NewReviewer(engine, cfg.SearchDomain, logger.With().Str("component", "review").Logger())
	store := fileio.NewStore(cfg.MarketsFile, cfg.CacheFile, logger.With().Str("component", "store").Logger())
	opts := model.Options{
		Threshold:       cfg.MatchThreshold,
		StrictThreshold: cfg.StrictThreshold,
		Concurrency:     cfg.SearchConcurrency,
	}

	r := serverhttp.NewRouter(cfg, logger, handler.New(engine, reviewer, store, opts, logger))

	// matching a large market can take minutes, so no write timeout
	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", cfg.Addr()).Str("markets_file", cfg.MarketsFile).Str("cache_file", cfg.CacheFile).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info().Msg("bye")
}
