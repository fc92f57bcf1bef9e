package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, record Record) (int64, error)
	// List returns the newest records of the session first.
	List(ctx context.Context, sessionId string, limit int) ([]Record, error)
	DeleteSessions(ctx context.Context, sessionIds []string) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Store(ctx context.Context, record Record) (int64, error) {
	query := `INSERT INTO audit_log (session_id, action, count, detail, created_at)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query, record.SessionId, record.Action, record.Count, record.Detail, record.CreatedAt).Scan(&id)
	if err != nil {
		err = fmt.Errorf("could not store audit record: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

func (r *RepositoryImpl) List(ctx context.Context, sessionId string, limit int) ([]Record, error) {
	query := `SELECT id, session_id::text, action, count, detail, created_at
              FROM audit_log
              WHERE session_id = $1
              ORDER BY id DESC
              LIMIT $2`
	rows, err := r.db.Query(ctx, query, sessionId, limit)
	if err != nil {
		err = fmt.Errorf("could not query audit records: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Id, &rec.SessionId, &rec.Action, &rec.Count, &rec.Detail, &rec.CreatedAt); err != nil {
			err = fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return records, nil
}

func (r *RepositoryImpl) DeleteSessions(ctx context.Context, sessionIds []string) (int, error) {
	if len(sessionIds) == 0 {
		return 0, nil
	}
	result, err := r.db.Exec(ctx, `DELETE FROM audit_log WHERE session_id::text = ANY($1)`, sessionIds)
	if err != nil {
		err = fmt.Errorf("could not delete audit records: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}
