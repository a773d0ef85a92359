package repository

import (
	"context"

	"duet_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportRepository struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO reports (reporter_id, reported_id, reason)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		rep.ReporterID, rep.ReportedID, rep.Reason,
	).Scan(&rep.ID, &rep.CreatedAt)
}

// CountAgainst reports how many distinct players have reported the given
// player. The ban threshold itself lives with moderation, not here.
func (r *ReportRepository) CountAgainst(ctx context.Context, reportedID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT reporter_id) FROM reports WHERE reported_id = $1`,
		reportedID,
	).Scan(&n)
	return n, err
}
