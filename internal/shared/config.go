package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	// Listings source
	SourceBase string
	SourceRPS  int
	ChromeBin  string

	// Browser pool
	PoolSize       int
	AcquireTimeout time.Duration
	FetchTimeout   time.Duration

	// Analog search ladder
	MinAnalogs       int
	PremiumThreshold float64 // subject price at/above this starts on the wider rung
	BaseTolerance    float64 // ±price and ±area fraction of the tightest rung
	PremiumTolerance float64 // ±price fraction of the tightest rung, premium band
	RungStep         float64 // how much each escalation widens tolerances
	LadderBudget     time.Duration

	// Pricing & recommendations
	DampingFactor float64 // pulls pessimistic/optimistic toward the median
	QualityFloor  float64 // below this the scenario is flagged low-confidence
	ROIThreshold  float64 // minimum lift/cost ratio to recommend an improvement

	CacheTTL time.Duration

	// Scout
	ScoutWorkers   int
	ScoutDistricts []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/fairprice?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		SourceBase: env("SOURCE_BASE_URL", "https://www.cian.ru"),
		SourceRPS:  atoi("SOURCE_RPS", 2),
		ChromeBin:  env("CHROME_BIN", ""),

		PoolSize:       atoi("BROWSER_POOL_SIZE", 3),
		AcquireTimeout: time.Duration(atoi("POOL_ACQUIRE_TIMEOUT_MS", 10_000)) * time.Millisecond,
		FetchTimeout:   time.Duration(atoi("FETCH_TIMEOUT_MS", 45_000)) * time.Millisecond,

		MinAnalogs:       atoi("MIN_ANALOGS", 5),
		PremiumThreshold: atof("PREMIUM_THRESHOLD", 25_000_000),
		BaseTolerance:    atof("BASE_TOLERANCE", 0.30),
		PremiumTolerance: atof("PREMIUM_TOLERANCE", 0.40),
		RungStep:         atof("RUNG_STEP", 0.10),
		LadderBudget:     time.Duration(atoi("LADDER_BUDGET_MS", 180_000)) * time.Millisecond,

		DampingFactor: atof("DAMPING_FACTOR", 0.5),
		QualityFloor:  atof("QUALITY_FLOOR", 0.5),
		ROIThreshold:  atof("ROI_THRESHOLD", 1.5),

		CacheTTL: time.Duration(atoi("CACHE_TTL_SECONDS", 1800)) * time.Second,

		ScoutWorkers:   atoi("SCOUT_WORKERS", 4),
		ScoutDistricts: splitList(env("SCOUT_DISTRICTS", "")),
	}
	if c.PoolSize < 1 {
		log.Warn().Int("size", c.PoolSize).Msg("browser pool size below 1, using 1")
		c.PoolSize = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
