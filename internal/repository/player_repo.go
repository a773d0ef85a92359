package repository

import (
	"context"
	"errors"

	"duet_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*domain.Player, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, COALESCE(email, ''), password_hash, created_at
		 FROM players
		 WHERE id = $1`,
		id,
	)
	return scanPlayer(row)
}

func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, username, COALESCE(email, ''), password_hash, created_at
		 FROM players
		 WHERE username = $1`,
		username,
	)
	return scanPlayer(row)
}

func (r *PlayerRepository) Create(ctx context.Context, p *domain.Player) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO players (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Username, p.Email, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt)
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
