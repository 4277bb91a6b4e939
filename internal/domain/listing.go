package domain

import "time"

// Listing is one scraped candidate analog. Never mutated after creation.
type Listing struct {
	SourceID  string // external listing identity, dedup key
	URL       string
	Price     float64
	Area      float64 // m², total
	Rooms     int
	Region    string
	District  string
	ScrapedAt time.Time
}

// PricePerSqm is the comparison basis for the whole pipeline.
func (l Listing) PricePerSqm() float64 {
	if l.Area <= 0 {
		return 0
	}
	return l.Price / l.Area
}

// Scope is the geographic reach of one ladder rung.
type Scope string

const (
	ScopeDistrict Scope = "district"
	ScopeCity     Scope = "city"
	ScopeRegion   Scope = "region"
)

// SearchFilter is one rung of the escalation ladder. Tolerances are fractions
// of the subject's value; zero means the dimension is unconstrained. RoomDelta
// below zero means any room count. Each successive rung must be equal to or
// looser than the previous one on every dimension.
type SearchFilter struct {
	Name           string
	PriceTolerance float64
	AreaTolerance  float64
	RoomDelta      int
	Scope          Scope
}

// LooserThan reports whether f is non-strictly wider than prev on every
// dimension, treating zero tolerance as unbounded.
func (f SearchFilter) LooserThan(prev SearchFilter) bool {
	wider := func(cur, old float64) bool { return cur == 0 || (old != 0 && cur >= old) }
	roomsWider := f.RoomDelta < 0 || (prev.RoomDelta >= 0 && f.RoomDelta >= prev.RoomDelta)
	return wider(f.PriceTolerance, prev.PriceTolerance) &&
		wider(f.AreaTolerance, prev.AreaTolerance) &&
		roomsWider &&
		scopeRank(f.Scope) >= scopeRank(prev.Scope)
}

func scopeRank(s Scope) int {
	switch s {
	case ScopeDistrict:
		return 0
	case ScopeCity:
		return 1
	default:
		return 2
	}
}

// SearchQuery is a rung resolved against a concrete subject: absolute bounds
// ready to be serialized into the listings source's query contract. A zero
// Max means the bound is open.
type SearchQuery struct {
	MinPrice, MaxPrice float64
	MinArea, MaxArea   float64
	MinRooms, MaxRooms int
	Region             string
	District           string // empty unless Scope == district
	Scope              Scope
	Rung               string // name of the rung this query was resolved from
}

// Resolve turns the rung's relative tolerances into absolute bounds for the
// given subject.
func (f SearchFilter) Resolve(p SubjectProperty) SearchQuery {
	q := SearchQuery{Region: p.Region, Scope: f.Scope, Rung: f.Name}
	if f.Scope == ScopeDistrict {
		q.District = p.District
	}
	if f.PriceTolerance > 0 && p.ListPrice > 0 {
		q.MinPrice = p.ListPrice * (1 - f.PriceTolerance)
		q.MaxPrice = p.ListPrice * (1 + f.PriceTolerance)
	}
	if f.AreaTolerance > 0 {
		q.MinArea = p.TotalArea * (1 - f.AreaTolerance)
		q.MaxArea = p.TotalArea * (1 + f.AreaTolerance)
	}
	if f.RoomDelta >= 0 {
		q.MinRooms = p.Rooms - f.RoomDelta
		if q.MinRooms < 1 {
			q.MinRooms = 1
		}
		q.MaxRooms = p.Rooms + f.RoomDelta
	}
	return q
}

// AnalogSet is the accepted analogs for one analysis, tagged with the rung
// that achieved sufficiency. Degraded is set when even the final fallback rung
// could not reach the minimum viable count.
type AnalogSet struct {
	Listings []Listing
	Rung     string
	Degraded bool
}

func (a AnalogSet) Count() int { return len(a.Listings) }

// PricesPerSqm extracts the comparison values in discovery order, skipping
// listings with unusable area.
func (a AnalogSet) PricesPerSqm() []float64 {
	out := make([]float64, 0, len(a.Listings))
	for _, l := range a.Listings {
		if v := l.PricePerSqm(); v > 0 {
			out = append(out, v)
		}
	}
	return out
}
