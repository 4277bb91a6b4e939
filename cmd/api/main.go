package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fairprice/internal/adapters/browser"
	"fairprice/internal/adapters/cian"
	server "fairprice/internal/adapters/http_server"
	"fairprice/internal/adapters/observability"
	redisad "fairprice/internal/adapters/redis"
	"fairprice/internal/app"
	"fairprice/internal/shared"
	mysqlrepo "fairprice/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// archive db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	pool := browser.New(browser.Options{
		Size:           cfg.PoolSize,
		AcquireTimeout: cfg.AcquireTimeout,
		ChromeBin:      cfg.ChromeBin,
	})
	defer pool.Close()

	source := cian.New(pool, cfg.SourceBase, cfg.SourceRPS, cfg.FetchTimeout)
	finder := app.NewFinder(source, app.FinderConfig{
		MinAnalogs:       cfg.MinAnalogs,
		PremiumThreshold: cfg.PremiumThreshold,
		BaseTolerance:    cfg.BaseTolerance,
		PremiumTolerance: cfg.PremiumTolerance,
		RungStep:         cfg.RungStep,
		LadderBudget:     cfg.LadderBudget,
	})
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	archive := mysqlrepo.New(db)
	svc := app.NewAnalysisService(
		finder,
		app.NewCalculator(cfg.DampingFactor, cfg.QualityFloor),
		app.NewEngine(cfg.ROIThreshold),
		cache,
		archive,
		cfg.CacheTTL,
	)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc})

	log.Info().Str("addr", cfg.HTTPAddr).Int("pool", cfg.PoolSize).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
