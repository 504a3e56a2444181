package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sahayak/teacher-portal/backend/internal/models"
)

// PostgresStore keeps teacher profiles.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the teachers table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS teachers (
			id           VARCHAR(128) PRIMARY KEY,
			email        VARCHAR(255) NOT NULL DEFAULT '',
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			first_seen   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_login   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// UpsertTeacher records a login. first_seen is kept from the first insert;
// empty email/name never overwrite stored values.
func (s *PostgresStore) UpsertTeacher(ctx context.Context, t models.Teacher) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO teachers (id, email, display_name, first_seen, last_login)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   email        = COALESCE(NULLIF(EXCLUDED.email, ''), teachers.email),
		   display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), teachers.display_name),
		   last_login   = EXCLUDED.last_login`,
		t.ID, t.Email, t.DisplayName, t.FirstSeen, t.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("upsert teacher: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	var t models.Teacher
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, display_name, first_seen, last_login FROM teachers WHERE id = $1`, id,
	).Scan(&t.ID, &t.Email, &t.DisplayName, &t.FirstSeen, &t.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
