package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"theater-recon/internal/config"
	"theater-recon/internal/fileio"
	"theater-recon/internal/reconcile/model"
	"theater-recon/internal/reconcile/service"
	"theater-recon/internal/search"
)

// searcherFactory builds the live search; tests swap in a fake.
type searcherFactory func(cfg config.Config, logger zerolog.Logger) (service.Searcher, error)

func liveSearcher(cfg config.Config, logger zerolog.Logger) (service.Searcher, error) {
	return search.NewClient(search.ClientConfig{
		BaseURL:   cfg.SearchBaseURL,
		Timeout:   cfg.SearchTimeout,
		RateLimit: rate.Limit(cfg.SearchRPS),
	}, logger.With().Str("component", "search").Logger())
}

type scanFlags struct {
	markets         []string
	threshold       int
	strictThreshold int
	date            string
	dryRun          bool
}

func newRootCommand(newSearcher searcherFactory) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:           "scan",
		Short:         "Match roster theaters to ticketing-site listings and rebuild the theater cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := config.SetupLogger(cfg)
			s, err := newSearcher(cfg, logger)
			if err != nil {
				return err
			}
			return runScan(cmd, cfg, logger, s, flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.markets, "market", "m", nil, "Market to match (repeatable; default: every market)")
	cmd.Flags().IntVar(&flags.threshold, "threshold", 0, "Match threshold for fallback phases (default MATCH_THRESHOLD)")
	cmd.Flags().IntVar(&flags.strictThreshold, "strict-threshold", 0, "Market ZIP phase threshold (default STRICT_THRESHOLD)")
	cmd.Flags().StringVar(&flags.date, "date", "", "Showtime date for ZIP searches, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Match and report without writing files")

	return cmd
}

func runScan(cmd *cobra.Command, cfg config.Config, logger zerolog.Logger, s service.Searcher, flags scanFlags) error {
	store := fileio.NewStore(cfg.MarketsFile, cfg.CacheFile, logger)
	roster, err := store.LoadRoster()
	if err != nil {
		return err
	}
	cache, err := store.LoadCache()
	if err != nil {
		return err
	}

	opts := model.Options{
		Threshold:       cfg.MatchThreshold,
		StrictThreshold: cfg.StrictThreshold,
		Concurrency:     cfg.SearchConcurrency,
		Date:            flags.date,
	}
	if flags.threshold > 0 {
		opts.Threshold = flags.threshold
	}
	if flags.strictThreshold > 0 {
		opts.StrictThreshold = flags.strictThreshold
	}

	engine := service.NewEngine(s, nil, logger.With().Str("component", "matcher").Logger())
	results, err := engine.MatchRoster(cmd.Context(), roster, flags.markets, opts)
	if err != nil {
		return err
	}

	mode := service.ModeFull
	if len(flags.markets) > 0 {
		mode = service.ModeMerge
	}
	newCache, newRoster := service.Apply(roster, cache, results, mode)

	out := cmd.OutOrStdout()
	printSummary(out, results)
	if flags.dryRun {
		fmt.Fprintln(out, "dry run: nothing written")
		return nil
	}
	if err := service.Persist(store, newRoster, newCache, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s and %s (%s)\n", cfg.CacheFile, cfg.MarketsFile, mode)
	return nil
}

func printSummary(out io.Writer, results []model.MatchResult) {
	q := service.Partition(results)
	matched := len(results) - q.Size()
	fmt.Fprintf(out, "theaters: %d  matched: %d  no match: %d  closed: %d  not on fandango: %d\n",
		len(results), matched, len(q.NeedsRematch), len(q.PermanentlyClosed), len(q.NotOnFandango))
	for _, r := range q.NeedsRematch {
		fmt.Fprintf(out, "  needs rematch: %s / %s (%s)\n", r.Market, r.OriginalName, r.ZipCode)
	}
}
