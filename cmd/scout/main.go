// Scout sweeps configured districts region-wide and archives every listing it
// finds, so agents can audit local inventory before running estimates.
package main

import (
	"context"
	"database/sql"
	"os"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"fairprice/internal/adapters/browser"
	"fairprice/internal/adapters/cian"
	"fairprice/internal/adapters/observability"
	"fairprice/internal/domain"
	"fairprice/internal/shared"
	mysqlrepo "fairprice/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	if len(cfg.ScoutDistricts) == 0 {
		log.Fatal().Msg("SCOUT_DISTRICTS is empty, nothing to sweep")
	}
	log.Info().
		Strs("districts", cfg.ScoutDistricts).
		Int("workers", cfg.ScoutWorkers).
		Int("pool", cfg.PoolSize).
		Msg("scout starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	archive := mysqlrepo.New(db)

	pool := browser.New(browser.Options{
		Size:           cfg.PoolSize,
		AcquireTimeout: cfg.AcquireTimeout,
		ChromeBin:      cfg.ChromeBin,
	})
	defer pool.Close()
	source := cian.New(pool, cfg.SourceBase, cfg.SourceRPS, cfg.FetchTimeout)

	region := env("SCOUT_REGION", "moscow")
	sem := semaphore.NewWeighted(int64(cfg.ScoutWorkers))
	var wg sync.WaitGroup

	for _, district := range cfg.ScoutDistricts {
		district := district

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := sweep(ctx, source, archive, region, district); err != nil {
				log.Warn().Str("district", district).Err(err).Msg("sweep failed")
				return
			}
			log.Info().Str("district", district).Msg("sweep ok")
		}()
	}

	wg.Wait()
	log.Info().Msg("scout completed")
}

func sweep(ctx context.Context, source domain.ListingSource, archive domain.ListingArchive, region, district string) error {
	ls, err := source.Search(ctx, domain.SearchQuery{
		Region:   region,
		District: district,
		Scope:    domain.ScopeDistrict,
		Rung:     "scout-sweep",
	})
	if err != nil {
		return err
	}
	if len(ls) == 0 {
		return archive.LogEmptyRung(ctx, region, district, "scout-sweep")
	}
	return archive.SaveListings(ctx, "scout:"+district, ls)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
