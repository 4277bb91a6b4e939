package app

import (
	"fmt"
	"math"
	"sort"

	"fairprice/internal/domain"
)

// Heuristic multipliers for improvement recommendations. Lifts are fractions
// of the median absolute scenario; costs are rough market figures.
const (
	renovationLift      = 0.10
	renovationCostPerM2 = 8_000
	windowLift          = 0.02
	windowCost          = 150_000

	overpricedMargin  = 0.10 // above optimistic by this much is critical
	aboveMedianMargin = 0.05

	minPhotos = 8
)

// Engine turns a price scenario plus subject attributes into ranked advice.
// Pure transform: same inputs, same output, no I/O.
type Engine struct {
	roiThreshold float64
}

func NewEngine(roiThreshold float64) *Engine {
	if roiThreshold <= 0 {
		roiThreshold = 1.5
	}
	return &Engine{roiThreshold: roiThreshold}
}

// Recommend emits pricing, improvement, presentation and strategy advice,
// sorted by priority rank then by estimated impact descending.
func (e *Engine) Recommend(p domain.SubjectProperty, sc domain.PriceScenario) []domain.Recommendation {
	var recs []domain.Recommendation

	recs = append(recs, e.pricing(p, sc)...)
	recs = append(recs, e.improvements(p, sc)...)
	recs = append(recs, e.presentation(p)...)
	recs = append(recs, e.strategy(sc)...)

	sort.SliceStable(recs, func(i, j int) bool {
		if ri, rj := recs[i].Priority.Rank(), recs[j].Priority.Rank(); ri != rj {
			return ri < rj
		}
		return math.Abs(recs[i].Impact) > math.Abs(recs[j].Impact)
	})
	return recs
}

func (e *Engine) pricing(p domain.SubjectProperty, sc domain.PriceScenario) []domain.Recommendation {
	if p.ListPrice <= 0 {
		return nil
	}
	ab := sc.Absolute
	switch {
	case p.ListPrice > ab.Optimistic*(1+overpricedMargin):
		return []domain.Recommendation{{
			Category: domain.CategoryPricing,
			Priority: domain.PriorityCritical,
			Message: fmt.Sprintf("Listed price exceeds even the optimistic scenario by more than %.0f%%; expect the listing to stall without a cut toward %.0f.",
				overpricedMargin*100, ab.Median),
			Impact: p.ListPrice - ab.Median,
		}}
	case p.ListPrice > ab.Median*(1+aboveMedianMargin):
		return []domain.Recommendation{{
			Category: domain.CategoryPricing,
			Priority: domain.PriorityHigh,
			Message: fmt.Sprintf("Listed price sits noticeably above the market median %.0f; consider narrowing the gap to shorten time on market.",
				ab.Median),
			Impact: p.ListPrice - ab.Median,
		}}
	case p.ListPrice >= ab.Pessimistic:
		return []domain.Recommendation{{
			Category: domain.CategoryPricing,
			Priority: domain.PriorityInfo,
			Message:  "Listed price is inside the fair pessimistic-optimistic band.",
		}}
	default:
		return []domain.Recommendation{{
			Category: domain.CategoryPricing,
			Priority: domain.PriorityMedium,
			Message: fmt.Sprintf("Listed price is below the pessimistic scenario %.0f; the sale leaves value on the table.",
				ab.Pessimistic),
			Impact: ab.Pessimistic - p.ListPrice,
		}}
	}
}

func (e *Engine) improvements(p domain.SubjectProperty, sc domain.PriceScenario) []domain.Recommendation {
	var recs []domain.Recommendation
	ab := sc.Absolute

	if !p.Renovated {
		lift := ab.Median * renovationLift
		cost := renovationCostPerM2 * p.TotalArea
		if roi := lift / cost; roi >= e.roiThreshold {
			prio := domain.PriorityMedium
			if roi >= 2*e.roiThreshold {
				prio = domain.PriorityHigh
			}
			recs = append(recs, domain.Recommendation{
				Category: domain.CategoryImprovement,
				Priority: prio,
				Message: fmt.Sprintf("A cosmetic renovation (~%.0f) typically lifts the sale price by about %.0f in this segment.",
					cost, lift),
				Impact: lift,
				ROI:    roi,
			})
		}
	}
	if p.Windows == domain.WindowsWood {
		lift := ab.Median * windowLift
		if roi := lift / windowCost; roi >= e.roiThreshold {
			recs = append(recs, domain.Recommendation{
				Category: domain.CategoryImprovement,
				Priority: domain.PriorityMedium,
				Message: fmt.Sprintf("Replacing wooden windows (~%.0f) tends to pay for itself %.1fx over at this price point.",
					float64(windowCost), roi),
				Impact: lift,
				ROI:    roi,
			})
		}
	}
	return recs
}

func (e *Engine) presentation(p domain.SubjectProperty) []domain.Recommendation {
	switch {
	case p.PhotoCount == 0:
		return []domain.Recommendation{{
			Category: domain.CategoryPresentation,
			Priority: domain.PriorityMedium,
			Message:  "The listing has no photos; buyers skip photo-less listings almost entirely.",
		}}
	case p.PhotoCount < minPhotos:
		return []domain.Recommendation{{
			Category: domain.CategoryPresentation,
			Priority: domain.PriorityInfo,
			Message:  fmt.Sprintf("Only %d photos; listings with %d+ get significantly more views.", p.PhotoCount, minPhotos),
		}}
	}
	return nil
}

func (e *Engine) strategy(sc domain.PriceScenario) []domain.Recommendation {
	if !sc.LowConfidence {
		return nil
	}
	return []domain.Recommendation{{
		Category: domain.CategoryStrategy,
		Priority: domain.PriorityMedium,
		Message: fmt.Sprintf("The comparable sample is thin or dispersed (quality %.2f); have an agent review the estimate manually before acting on it.",
			sc.Stats.Quality),
	}}
}
