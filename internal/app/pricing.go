package app

import (
	"fmt"

	"fairprice/internal/domain"
)

// Calculator combines distribution statistics with the subject property into
// a pessimistic/median/optimistic price scenario.
type Calculator struct {
	damping      float64 // 0..1, how far toward Q1/Q3 the outer scenarios move
	qualityFloor float64
}

func NewCalculator(damping, qualityFloor float64) *Calculator {
	if damping <= 0 || damping > 1 {
		damping = 0.5
	}
	if qualityFloor <= 0 || qualityFloor > 1 {
		qualityFloor = 0.5
	}
	return &Calculator{damping: damping, qualityFloor: qualityFloor}
}

// Scenario prices the subject. The median scenario is the distribution
// median; the outer scenarios shift toward Q1/Q3 by the damping factor rather
// than landing on the quartiles themselves, which overreach on skewed small
// samples. Pessimistic <= median <= optimistic always holds since Q1 <=
// median <= Q3.
//
// A quality score below the configured floor does not fail the calculation;
// the scenario is returned flagged LowConfidence.
func (c *Calculator) Scenario(p domain.SubjectProperty, st domain.DistributionStats) (domain.PriceScenario, error) {
	if p.TotalArea <= 0 {
		return domain.PriceScenario{}, fmt.Errorf("%w: scenario requires positive total area", domain.ErrInvalidInput)
	}
	if st.SampleSize == 0 || st.Median <= 0 {
		return domain.PriceScenario{}, fmt.Errorf("%w: no usable analog prices", domain.ErrNoAnalogs)
	}

	perSqm := domain.Band{
		Pessimistic: st.Median - c.damping*(st.Median-st.Q1),
		Median:      st.Median,
		Optimistic:  st.Median + c.damping*(st.Q3-st.Median),
	}
	return domain.PriceScenario{
		PerSqm: perSqm,
		Absolute: domain.Band{
			Pessimistic: perSqm.Pessimistic * p.TotalArea,
			Median:      perSqm.Median * p.TotalArea,
			Optimistic:  perSqm.Optimistic * p.TotalArea,
		},
		Stats:         st,
		LowConfidence: st.Quality < c.qualityFloor,
	}, nil
}
