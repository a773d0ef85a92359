package repository

import (
	"context"
	"time"

	"duet_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ScoreboardRepository struct {
	db *pgxpool.Pool
}

func NewScoreboardRepository(db *pgxpool.Pool) *ScoreboardRepository {
	return &ScoreboardRepository{db: db}
}

// RecordWin bumps the win counter and lowers the fastest-time record when
// the new elapsed time beats it.
func (r *ScoreboardRepository) RecordWin(ctx context.Context, playerID int64, elapsed time.Duration) error {
	secs := int(elapsed.Seconds())
	_, err := r.db.Exec(ctx,
		`INSERT INTO scoreboard (player_id, wins, fastest_win_seconds, updated_at)
		 VALUES ($1, 1, $2, now())
		 ON CONFLICT (player_id) DO UPDATE
		 SET wins = scoreboard.wins + 1,
		     fastest_win_seconds = LEAST(scoreboard.fastest_win_seconds, EXCLUDED.fastest_win_seconds),
		     updated_at = now()`,
		playerID, secs,
	)
	return err
}

func (r *ScoreboardRepository) IncrementAssassins(ctx context.Context, playerID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO scoreboard (player_id, assassins_revealed, updated_at)
		 VALUES ($1, 1, now())
		 ON CONFLICT (player_id) DO UPDATE
		 SET assassins_revealed = scoreboard.assassins_revealed + 1,
		     updated_at = now()`,
		playerID,
	)
	return err
}

// Top returns the leaderboard ordered by wins, fastest record breaking ties.
func (r *ScoreboardRepository) Top(ctx context.Context, limit int) ([]*domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT s.player_id, p.username, s.wins, s.fastest_win_seconds, s.assassins_revealed, s.updated_at
		 FROM scoreboard s
		 JOIN players p ON p.id = s.player_id
		 ORDER BY s.wins DESC, s.fastest_win_seconds ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ScoreRecord
	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.PlayerID, &rec.Username, &rec.Wins, &rec.FastestWinSeconds, &rec.AssassinsRevealed, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
