package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Create(ctx context.Context, session Session) error
	// Touch moves last_accessed of an existing session to at. It reports false for unknown ids.
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
	// DeleteIdleSince removes sessions not accessed since cutoff along with everything they own.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]string, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, session Session) error {
	query := `INSERT INTO budget_session (id, created_at, last_accessed) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, session.Id, session.CreatedAt, session.LastAccessed)
	if err != nil {
		err = fmt.Errorf("could not create session: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE budget_session SET last_accessed = $2 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		err = fmt.Errorf("could not touch session: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `DELETE FROM budget_session WHERE last_accessed < $1 RETURNING id::text`
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		err = fmt.Errorf("could not delete idle sessions: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return ids, nil
}
