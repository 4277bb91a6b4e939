package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fairprice/internal/adapters/observability"
	"fairprice/internal/domain"
)

// AnalysisService runs the whole pipeline for one request: validate, find
// analogs (or reuse a cached set), compute statistics, price the scenarios,
// derive recommendations and archive the evidence. Requests are independent:
// nothing here is shared mutable state, so any number may run concurrently,
// competing only for the browser pool underneath the listing source.
type AnalysisService struct {
	finder  *Finder
	calc    *Calculator
	engine  *Engine
	cache   domain.Cache          // optional
	archive domain.ListingArchive // optional
	ttl     time.Duration
}

func NewAnalysisService(finder *Finder, calc *Calculator, engine *Engine, cache domain.Cache, archive domain.ListingArchive, ttl time.Duration) *AnalysisService {
	return &AnalysisService{finder: finder, calc: calc, engine: engine, cache: cache, archive: archive, ttl: ttl}
}

// Analyze prices one subject. key is an optional idempotency key: when a
// non-expired AnalogSet is cached under it, fetching is skipped entirely.
// Correctness never depends on the cache; any cache error degrades to a
// fresh search.
func (s *AnalysisService) Analyze(ctx context.Context, p domain.SubjectProperty, nMin int, key string) (domain.Analysis, error) {
	if err := p.Validate(); err != nil {
		observability.ObserveAnalysis("invalid")
		return domain.Analysis{}, err
	}

	set, cached := s.cachedAnalogs(ctx, key)
	if !cached {
		var err error
		set, err = s.finder.Find(ctx, p, nMin)
		if err != nil {
			if errors.Is(err, domain.ErrNoAnalogs) {
				observability.ObserveAnalysis("no_analogs")
			} else {
				observability.ObserveAnalysis("error")
			}
			return domain.Analysis{}, err
		}
		s.cacheAnalogs(ctx, key, set)
	}

	stats := AnalyzeDistribution(set.PricesPerSqm())
	scenario, err := s.calc.Scenario(p, stats)
	if err != nil {
		observability.ObserveAnalysis("error")
		return domain.Analysis{}, err
	}
	if set.Degraded {
		// A below-minimum sample is a quality signal regardless of its
		// dispersion.
		scenario.LowConfidence = true
	}

	recs := s.engine.Recommend(p, scenario)
	s.archiveAnalogs(ctx, key, set)

	switch {
	case cached:
		observability.ObserveAnalysis("cached")
	case set.Degraded:
		observability.ObserveAnalysis("degraded")
	default:
		observability.ObserveAnalysis("ok")
	}
	log.Info().
		Str("district", p.District).
		Str("rung", set.Rung).
		Int("analogs", set.Count()).
		Bool("degraded", set.Degraded).
		Bool("low_confidence", scenario.LowConfidence).
		Float64("median", scenario.Absolute.Median).
		Msg("analysis complete")

	return domain.Analysis{
		Subject:         p,
		Analogs:         set,
		Stats:           stats,
		Scenario:        scenario,
		Recommendations: recs,
	}, nil
}

func (s *AnalysisService) cachedAnalogs(ctx context.Context, key string) (domain.AnalogSet, bool) {
	if s.cache == nil || key == "" {
		return domain.AnalogSet{}, false
	}
	var set domain.AnalogSet
	ok, err := s.cache.Get(ctx, analogKey(key), &set)
	if err != nil {
		log.Warn().Err(err).Msg("analog cache read failed, fetching fresh")
		return domain.AnalogSet{}, false
	}
	return set, ok && set.Count() > 0
}

func (s *AnalysisService) cacheAnalogs(ctx context.Context, key string, set domain.AnalogSet) {
	if s.cache == nil || key == "" || set.Count() == 0 {
		return
	}
	if err := s.cache.Set(ctx, analogKey(key), set, int(s.ttl.Seconds())); err != nil {
		log.Warn().Err(err).Msg("analog cache write failed")
	}
}

func (s *AnalysisService) archiveAnalogs(ctx context.Context, key string, set domain.AnalogSet) {
	if s.archive == nil || set.Count() == 0 {
		return
	}
	id := key
	if id == "" {
		id = fmt.Sprintf("adhoc-%d", time.Now().UnixNano())
	}
	if err := s.archive.SaveListings(ctx, id, set.Listings); err != nil {
		log.Warn().Err(err).Str("analysis", id).Msg("listing archive write failed")
	}
}

func analogKey(key string) string { return "analogs:" + key }
