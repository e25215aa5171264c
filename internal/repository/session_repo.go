package repository

import (
	"context"
	"database/sql"
	"errors"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresSessionRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresSessionRepository(db *sql.DB, logger *logrus.Logger) domain.SessionRepository {
	return &postgresSessionRepository{db: db, log: logger}
}

// Create writes the whole session in one statement so a reader never sees a
// partially populated row.
func (r *postgresSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
        INSERT INTO sessions (token, principal_id, name, email, role, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.ExecContext(ctx, query,
		s.Token, s.Principal.ID, s.Principal.Name, s.Principal.Email, s.Principal.Role, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		r.log.Errorf("Repository: failed to create session for principal %d: %v", s.Principal.ID, err)
		return classify("create session", err)
	}
	return nil
}

func (r *postgresSessionRepository) Get(ctx context.Context, token string) (*domain.Session, error) {
	query := `
        SELECT token, principal_id, name, email, role, created_at, expires_at
        FROM sessions
        WHERE token = $1
    `
	s := &domain.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&s.Token, &s.Principal.ID, &s.Principal.Name, &s.Principal.Email, &s.Principal.Role, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorf("Repository: failed to load session: %v", err)
		return nil, classify("get session", err)
	}
	return s, nil
}

func (r *postgresSessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		r.log.Errorf("Repository: failed to delete session: %v", err)
		return classify("delete session", err)
	}
	return nil
}
