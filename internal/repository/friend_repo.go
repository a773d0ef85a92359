package repository

import (
	"context"

	"duet_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendRepository is the friend directory the presence manager consults.
// Rows are stored once with the lower player id first.
type FriendRepository struct {
	db *pgxpool.Pool
}

func NewFriendRepository(db *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{db: db}
}

func (r *FriendRepository) FriendsOf(ctx context.Context, playerID int64) ([]domain.PlayerRef, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.username
		 FROM friendships f
		 JOIN players p ON p.id = CASE WHEN f.player_a_id = $1 THEN f.player_b_id ELSE f.player_a_id END
		 WHERE f.player_a_id = $1 OR f.player_b_id = $1`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []domain.PlayerRef
	for rows.Next() {
		var ref domain.PlayerRef
		if err := rows.Scan(&ref.ID, &ref.Username); err != nil {
			return nil, err
		}
		friends = append(friends, ref)
	}
	return friends, rows.Err()
}

func (r *FriendRepository) Add(ctx context.Context, a, b int64) error {
	if a > b {
		a, b = b, a
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO friendships (player_a_id, player_b_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		a, b,
	)
	return err
}

func (r *FriendRepository) Remove(ctx context.Context, a, b int64) error {
	if a > b {
		a, b = b, a
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM friendships WHERE player_a_id = $1 AND player_b_id = $2`,
		a, b,
	)
	return err
}
