package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fairprice/internal/adapters/observability"
	"fairprice/internal/domain"
)

// FinderConfig carries the ladder's tunables. Zero values fall back to the
// defaults below so tests can set only what they exercise.
type FinderConfig struct {
	MinAnalogs       int
	PremiumThreshold float64
	BaseTolerance    float64
	PremiumTolerance float64
	RungStep         float64
	LadderBudget     time.Duration
	RetryDelay       time.Duration // backoff base before escalating past a failed rung
}

func (c FinderConfig) withDefaults() FinderConfig {
	if c.MinAnalogs <= 0 {
		c.MinAnalogs = 5
	}
	if c.PremiumThreshold <= 0 {
		c.PremiumThreshold = 25_000_000
	}
	if c.BaseTolerance <= 0 {
		c.BaseTolerance = 0.30
	}
	if c.PremiumTolerance <= 0 {
		c.PremiumTolerance = 0.40
	}
	if c.RungStep <= 0 {
		c.RungStep = 0.10
	}
	if c.LadderBudget <= 0 {
		c.LadderBudget = 3 * time.Minute
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return c
}

// Finder locates a minimum viable set of comparable listings by walking an
// escalation ladder of search filters, tightest first. All retry/escalation
// policy lives here; the listing source itself never retries.
type Finder struct {
	source domain.ListingSource
	cfg    FinderConfig
}

func NewFinder(source domain.ListingSource, cfg FinderConfig) *Finder {
	return &Finder{source: source, cfg: cfg.withDefaults()}
}

// Ladder builds the ordered rungs for one subject. The baseline price
// tolerance widens for premium subjects: inventory is thinner above the
// threshold, so a fixed tolerance would starve those searches. Every rung is
// non-strictly looser than the previous one, which makes escalation yield
// monotonically non-decreasing and guarantees termination at the final
// region-only rung.
func (f *Finder) Ladder(p domain.SubjectProperty) []domain.SearchFilter {
	priceTol := f.cfg.BaseTolerance
	if p.ListPrice >= f.cfg.PremiumThreshold {
		priceTol = f.cfg.PremiumTolerance
	}
	areaTol := f.cfg.BaseTolerance
	step := f.cfg.RungStep

	return []domain.SearchFilter{
		{Name: "district-tight", PriceTolerance: priceTol, AreaTolerance: areaTol, RoomDelta: 1, Scope: domain.ScopeDistrict},
		{Name: "district-wide", PriceTolerance: priceTol + step, AreaTolerance: areaTol + step, RoomDelta: 2, Scope: domain.ScopeDistrict},
		{Name: "city-wide", PriceTolerance: priceTol + 2*step, AreaTolerance: areaTol + 2*step, RoomDelta: 2, Scope: domain.ScopeCity},
		{Name: "region-only", RoomDelta: -1, Scope: domain.ScopeRegion},
	}
}

// Find walks the ladder until the accumulated analog count reaches the
// minimum viable size. nMin <= 0 uses the configured default.
//
// Failure semantics: a rung's fetch error is absorbed and escalation
// continues, except domain.ErrPoolExhausted which propagates as-is so the
// caller can retry; exhausting the ladder below nMin returns the accumulated
// set flagged Degraded; only an empty region-only result is fatal
// (domain.ErrNoAnalogs). Exceeding the aggregate budget truncates the ladder
// and proceeds with whatever has been accumulated, as long as anything was.
func (f *Finder) Find(ctx context.Context, p domain.SubjectProperty, nMin int) (domain.AnalogSet, error) {
	if nMin <= 0 {
		nMin = f.cfg.MinAnalogs
	}
	ladderCtx, cancel := context.WithTimeout(ctx, f.cfg.LadderBudget)
	defer cancel()

	ladder := f.Ladder(p)
	seen := make(map[string]struct{})
	var acc []domain.Listing
	lastRung := ladder[0].Name
	var lastErr error

	for i, rung := range ladder {
		if ctx.Err() != nil {
			// Caller canceled: propagate, never mask as a result.
			return domain.AnalogSet{}, ctx.Err()
		}
		if ladderCtx.Err() != nil {
			log.Warn().Str("rung", rung.Name).Int("accumulated", len(acc)).
				Msg("ladder budget exhausted, truncating escalation")
			break
		}

		observability.ObserveRung(rung.Name)
		lastRung = rung.Name
		ls, err := f.source.Search(ladderCtx, rung.Resolve(p))
		if err != nil {
			if ctx.Err() != nil {
				return domain.AnalogSet{}, ctx.Err()
			}
			if errors.Is(err, domain.ErrPoolExhausted) {
				// A saturated pool is transient: widening the net would only
				// queue more work behind it. Let the caller retry instead.
				return domain.AnalogSet{}, err
			}
			lastErr = err
			log.Warn().Err(err).Str("rung", rung.Name).Msg("rung fetch failed, escalating")
			// Brief jittered pause before hitting the source again with a
			// wider net, unless this was already the last rung.
			if i < len(ladder)-1 {
				sleepCtx(ladderCtx, escalationDelay(f.cfg.RetryDelay, i))
			}
			continue
		}

		added := 0
		for _, l := range ls {
			key := l.SourceID
			if key == "" {
				key = l.URL
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			acc = append(acc, l)
			added++
		}
		log.Info().Str("rung", rung.Name).Int("found", len(ls)).Int("new", added).
			Int("accumulated", len(acc)).Msg("rung complete")

		if len(acc) >= nMin {
			return domain.AnalogSet{Listings: acc, Rung: rung.Name}, nil
		}
	}

	if len(acc) == 0 {
		if lastErr != nil {
			return domain.AnalogSet{}, fmt.Errorf("%w: %w", domain.ErrNoAnalogs, lastErr)
		}
		return domain.AnalogSet{}, domain.ErrNoAnalogs
	}
	return domain.AnalogSet{Listings: acc, Rung: lastRung, Degraded: true}, nil
}

// escalationDelay grows with the rung index and carries jitter so concurrent
// analyses don't hammer the source in lockstep.
func escalationDelay(unit time.Duration, i int) time.Duration {
	base := time.Duration(1<<i) * unit
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	j := time.Duration(0.5 * float64(b[0]) / 255.0 * float64(base)) // up to +50%
	return base + j
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
