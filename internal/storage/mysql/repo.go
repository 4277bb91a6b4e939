package mysql

import (
	"context"
	"database/sql"
	"strings"

	"fairprice/internal/domain"
)

// Repo archives scraped analog listings and empty-rung diagnostics.
// Implements domain.ListingArchive.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// SaveListings upserts the batch in one statement, deduplicating on source_id.
func (r *Repo) SaveListings(ctx context.Context, analysisID string, ls []domain.Listing) error {
	if len(ls) == 0 {
		return nil
	}
	values := make([]string, 0, len(ls))
	args := make([]any, 0, len(ls)*9)
	for _, l := range ls {
		values = append(values, "(?,?,?,?,?,?,?,?,?)")
		args = append(args,
			l.SourceID,
			l.URL,
			l.Price,
			l.Area,
			l.Rooms,
			l.Region,
			l.District,
			l.ScrapedAt.UTC(),
			analysisID,
		)
	}
	sqlStr := insertListingsPrefix + strings.Join(values, ",") + insertListingsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) LogEmptyRung(ctx context.Context, region, district, rung string) error {
	_, err := r.db.ExecContext(ctx, insertEmptyRungSQL, region, district, rung)
	return err
}

func (r *Repo) RecentByDistrict(ctx context.Context, region, district string, limit int) ([]domain.Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, recentByDistrictSQL, region, district, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var rooms sql.NullInt64
		var district sql.NullString
		if err := rows.Scan(
			&l.SourceID,
			&l.URL,
			&l.Price,
			&l.Area,
			&rooms,
			&l.Region,
			&district,
			&l.ScrapedAt,
		); err != nil {
			return nil, err
		}
		if rooms.Valid {
			l.Rooms = int(rooms.Int64)
		}
		if district.Valid {
			l.District = district.String
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
