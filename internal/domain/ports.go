package domain

import "context"

// ListingSource executes one filtered search against the external listings
// site and returns parsed candidates. A malformed result page yields an empty
// slice, not an error; a failed navigation yields a *FetchError.
type ListingSource interface {
	Search(ctx context.Context, q SearchQuery) ([]Listing, error)
}

// Cache is a bounded key/value store for AnalogSet reuse across requests that
// share an idempotency key. Pure optimization: every method may fail without
// affecting analysis correctness.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ListingArchive keeps an audit trail of the analogs that fed an estimate and
// of rungs that came back empty. Best-effort: failures are logged, never fatal.
type ListingArchive interface {
	SaveListings(ctx context.Context, analysisID string, ls []Listing) error
	LogEmptyRung(ctx context.Context, region, district, rung string) error
	RecentByDistrict(ctx context.Context, region, district string, limit int) ([]Listing, error)
}
