package domain

// DistributionStats are robust statistics over an AnalogSet's price-per-sqm
// values. Immutable once computed.
type DistributionStats struct {
	Mean       float64
	Median     float64
	StdDev     float64 // population
	Q1, Q3     float64
	IQR        float64
	CV         float64 // coefficient of variation, StdDev/Mean
	OutlierIdx []int   // indices into the input sequence that were excluded
	SampleSize int     // values remaining after outlier removal
	Quality    float64 // 0..1, grows with sample size and shrinks with dispersion
}

// Band is a pessimistic/median/optimistic price triple.
// Invariant: Pessimistic <= Median <= Optimistic.
type Band struct {
	Pessimistic float64 `json:"pessimistic"`
	Median      float64 `json:"median"`
	Optimistic  float64 `json:"optimistic"`
}

// PriceScenario is the fair-price estimate for a subject property.
type PriceScenario struct {
	PerSqm        Band              `json:"per_sqm"`
	Absolute      Band              `json:"absolute"`
	Stats         DistributionStats `json:"-"`
	LowConfidence bool              `json:"low_confidence"`
}

// Recommendation priority, highest first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityInfo     Priority = "info"
)

// Rank orders priorities for sorting; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type Category string

const (
	CategoryPricing      Category = "pricing"
	CategoryImprovement  Category = "improvement"
	CategoryPresentation Category = "presentation"
	CategoryStrategy     Category = "strategy"
)

// Recommendation is one ranked piece of advice. Impact is the estimated
// currency delta (or, for improvements, the expected price lift) used as the
// secondary sort key.
type Recommendation struct {
	Category Category `json:"category"`
	Priority Priority `json:"priority"`
	Message  string   `json:"message"`
	Impact   float64  `json:"impact,omitempty"`
	ROI      float64  `json:"roi,omitempty"` // lift/cost ratio, improvements only
}

// Analysis is the full result handed back to the caller.
type Analysis struct {
	Subject         SubjectProperty
	Analogs         AnalogSet
	Stats           DistributionStats
	Scenario        PriceScenario
	Recommendations []Recommendation
}
